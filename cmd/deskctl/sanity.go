package main

import (
	"errors"
	"fmt"

	"github.com/danmuck/deskctl/internal/sanity"
	"github.com/spf13/cobra"
)

var errSanityFailed = errors.New("sanity check failed")

func newSanityCmd() *cobra.Command {
	var (
		exts  []string
		skips []string
	)
	cmd := &cobra.Command{
		Use:   "sanity [dir...]",
		Short: "Parse every source file and report syntax errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			out := cmd.OutOrStdout()
			failed, total := 0, 0
			for _, root := range args {
				report, err := sanity.Check(cmd.Context(), root, sanity.Options{Extensions: exts, SkipDirs: skips})
				if err != nil {
					return err
				}
				total += len(report.Files)
				for _, f := range report.Failed() {
					failed++
					fmt.Fprintf(out, "FAIL %s: %s\n", f.Path, f.Err)
				}
			}
			fmt.Fprintf(out, "checked %d files, %d failed\n", total, failed)
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d files", errSanityFailed, failed, total)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "Go source suffixes to check, e.g. .go or .pb.go (default .go)")
	cmd.Flags().StringSliceVar(&skips, "skip", nil, "extra directory names to skip")
	return cmd
}
