package main

import (
	"github.com/danmuck/deskctl/internal/app"
	"github.com/danmuck/deskctl/internal/environment"
	"github.com/spf13/cobra"
)

func newEnvCmd(opts *rootOptions) *cobra.Command {
	var (
		format  string
		modules bool
	)
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print OS, runtime, database and product facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := environment.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			probe, err := a.Environment()
			if err != nil {
				return err
			}
			report, err := probe.Report(cmd.Context(), environment.ReportOptions{BundledModules: modules})
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text|json|yaml")
	cmd.Flags().BoolVar(&modules, "modules", false, "include bundled module versions")
	return cmd
}
