package main

import (
	"fmt"
	"os"

	"github.com/danmuck/deskctl/internal/config"
	"github.com/danmuck/deskctl/internal/observability"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "cmd/deskctl/config.toml"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "deskctl",
		Short:         "Service desk support runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			observability.InitLogger("deskctl")
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (defaults to "+defaultConfigPath+" when present)")

	root.AddCommand(
		newServeCmd(opts),
		newEnvCmd(opts),
		newSanityCmd(),
		newConfigCmd(opts),
	)
	return root
}

// load reads the configured file, or the default path when it exists, or
// falls back to built-in defaults.
func (o *rootOptions) load() (config.Config, error) {
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}
	return config.Load(path)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "deskctl: %v\n", err)
		os.Exit(1)
	}
}
