package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thesavant42/tableforms/internal/db"
	"github.com/thesavant42/tableforms/internal/models"
	"github.com/thesavant42/tableforms/internal/ui"
)

const defaultSeedCount = 200

func newSeedCmd(app *App) *cobra.Command {
	var (
		count int
		yes   bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo departments and employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			if count < 0 {
				return writeErr(cmd, errors.New("--count must not be negative"))
			}

			cfg, err := app.config(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			logger, closer, err := cfg.NewLogger()
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closer.Close()

			database, err := db.New(cfg.DBPath)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer database.Close()

			existing, err := database.Count(ctx, "employees", models.Query{})
			if err != nil {
				return writeErr(cmd, err)
			}
			if existing > 0 && !yes {
				ok, err := ui.ConfirmReseed(cfg.DBPath, existing)
				if err != nil || !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}

			title := fmt.Sprintf("Seeding %d employees...", count)
			if err := app.spin(title, func() error { return database.Seed(ctx, count) }); err != nil {
				return writeErr(cmd, err)
			}
			logger.Info("database seeded", "db", cfg.DBPath, "employees", count)

			var counts []ui.TableCount
			for _, table := range db.Tables() {
				n, err := database.Count(ctx, table, models.Query{})
				if err != nil {
					return writeErr(cmd, err)
				}
				counts = append(counts, ui.TableCount{Table: table, Rows: n})
			}
			ui.PrintTableCounts("Seeded "+cfg.DBPath, counts)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", defaultSeedCount, "Number of employees to generate")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Replace existing data without asking")
	return cmd
}
