package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/thesavant42/tableforms/internal/config"
	"github.com/thesavant42/tableforms/internal/db"
	"github.com/thesavant42/tableforms/internal/layout"
	"github.com/thesavant42/tableforms/internal/model"
	"github.com/thesavant42/tableforms/internal/models"
	"github.com/thesavant42/tableforms/internal/ui"
	"github.com/thesavant42/tableforms/internal/view"
)

func newRunCmd(app *App) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the form on the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForm(cmd, app, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Work on an in-memory copy; saves never reach the file")
	return cmd
}

func loadForm(cfg config.Config) (*layout.FormDef, error) {
	if cfg.FormPath == "" {
		return layout.Default(), nil
	}
	return layout.Load(cfg.FormPath)
}

func runForm(cmd *cobra.Command, app *App, dryRun bool) error {
	ctx := contextOf(cmd)

	cfg, err := app.config(cmd)
	if err != nil {
		return writeErr(cmd, err)
	}
	logger, closer, err := cfg.NewLogger()
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closer.Close()

	def, err := loadForm(cfg)
	if err != nil {
		return writeErr(cmd, err)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer database.Close()

	existing, err := database.Count(ctx, "departments", models.Query{})
	if err != nil {
		return writeErr(cmd, err)
	}
	if existing == 0 {
		return writeErr(cmd, fmt.Errorf("database %s is empty, run 'formsdemo seed' first", cfg.DBPath))
	}

	var src model.Source = database
	if dryRun {
		snap, err := database.Snapshot(ctx)
		if err != nil {
			return writeErr(cmd, err)
		}
		src = snap
		logger.Info("dry run, saves stay in memory", "db", cfg.DBPath)
	}

	sess := view.NewSession(logger)
	form, err := layout.Build(sess, def, src, ui.NewCell)
	if err != nil {
		return writeErr(cmd, fmt.Errorf("failed to build form %s: %w", def.Name, err))
	}
	defer form.Close(ctx)
	if err := form.Query(ctx); err != nil {
		return writeErr(cmd, err)
	}

	m, err := ui.NewFormModel(ctx, form, logger)
	if err != nil {
		return writeErr(cmd, err)
	}

	logger.Info("form opened", "form", def.Name, "db", cfg.DBPath)
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return writeErr(cmd, fmt.Errorf("form program error: %w", err))
	}

	fm, ok := final.(ui.FormModel)
	if !ok || !fm.Dirty() {
		return nil
	}

	save, err := ui.PromptSave(def.Title)
	if err != nil {
		logger.Warn("save prompt failed, changes discarded", "err", err)
		return nil
	}
	if !save {
		logger.Info("changes discarded", "form", def.Name)
		return nil
	}
	if err := form.Save(ctx); err != nil {
		ui.PrintError(err.Error())
		return err
	}
	ui.PrintSuccess("Changes saved")
	return nil
}
