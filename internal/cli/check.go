package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check [form.yaml]",
		Short: "Validate a form definition and print its blocks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(args) == 1 {
				cfg.FormPath = args[0]
			}
			def, err := loadForm(cfg)
			if err != nil {
				return writeErr(cmd, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "form %s: %s\n", def.Name, def.Title)
			for _, b := range def.Blocks {
				fmt.Fprintf(out, "  block %s on %s, %d rows", b.Name, b.Table, b.Rows)
				if b.Overlay {
					fmt.Fprint(out, ", overlay")
				}
				if b.Master != nil {
					fmt.Fprintf(out, ", detail of %s (%s = %s)", b.Master.Block, b.Master.DetailColumn, b.Master.Column)
				}
				fmt.Fprintf(out, ", %d fields\n", len(b.Fields))
			}
			return nil
		},
	}
}
