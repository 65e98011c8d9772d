package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Stream completions from a local inference server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "config file (default: search ./config.yml and the user config dir)")
	pf.StringVar(&flags.envFile, "env-file", "", ".env file to load")
	pf.StringVar(&flags.baseURL, "base-url", "", "inference server URL")
	pf.StringVarP(&flags.model, "model", "m", "", "model name")
	pf.IntVar(&flags.ctxSize, "ctx", 0, "context window size in tokens")
	pf.StringVar(&flags.dialect, "dialect", "", "server API dialect (goinfer, goinfer-legacy)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newCompleteCmd(flags),
		newFixCmd(flags),
		newModelsCmd(flags),
		newVersionCmd(),
	)
	return cmd
}
