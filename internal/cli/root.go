package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thesavant42/tableforms/internal/config"
	"github.com/thesavant42/tableforms/internal/ui"
)

// App carries the persistent flags shared by every command
type App struct {
	EnvFile  string
	DBPath   string
	FormPath string
	LogLevel string
	LogFile  string

	// spin runs long actions; tests swap it for a plain call
	spin func(title string, action func() error) error
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{spin: ui.RunWithSpinner})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "formsdemo",
		Short:        "Browse and edit database tables through forms",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => open the form.
			return runForm(cmd, app, false)
		},
	}

	cmd.PersistentFlags().StringVar(&app.EnvFile, "env", "", "Load settings from this .env file")
	cmd.PersistentFlags().StringVar(&app.DBPath, "db", "", "Path to SQLite database file (or set "+config.EnvDB+")")
	cmd.PersistentFlags().StringVar(&app.FormPath, "form", "", "Form definition YAML (or set "+config.EnvForm+")")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", "", "Log file, - for stderr, empty to discard")

	cmd.AddCommand(newRunCmd(app))
	cmd.AddCommand(newSeedCmd(app))
	cmd.AddCommand(newCheckCmd(app))

	return cmd
}

// config resolves settings: flags win over the environment and .env
func (app *App) config(cmd *cobra.Command) (config.Config, error) {
	var files []string
	if app.EnvFile != "" {
		files = append(files, app.EnvFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, err
	}
	if app.DBPath != "" {
		cfg.DBPath = app.DBPath
	}
	if app.FormPath != "" {
		cfg.FormPath = app.FormPath
	}
	if app.LogLevel != "" {
		lvl, err := config.ParseLevel(app.LogLevel)
		if err != nil {
			return config.Config{}, err
		}
		cfg.LogLevel = lvl
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = app.LogFile
	}
	return cfg, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
