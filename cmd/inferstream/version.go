package main

import (
	"encoding/json"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/kbukum/inferstream/version"
)

func newVersionCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			w := cmd.OutOrStdout()
			switch output {
			case "json":
				b, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, string(b))
				return err
			case "short":
				_, err := fmt.Fprintln(w, info.String())
				return err
			case "text", "":
				_, err := fmt.Fprintln(w, versionTable(info))
				return err
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, short)")
	return cmd
}

func versionTable(info version.Info) string {
	table := uitable.New()
	table.RightAlign(0)
	table.MaxColWidth = 80
	table.Separator = " "
	table.AddRow("version:", info.Version)
	if info.GitCommit != "" {
		table.AddRow("commit:", info.GitCommit)
	}
	if info.Dirty {
		table.AddRow("tree:", "dirty")
	}
	if !info.BuildDate.IsZero() {
		table.AddRow("built:", info.BuildDate.UTC().Format("2006-01-02T15:04:05Z"))
	}
	table.AddRow("go:", info.GoVersion)
	table.AddRow("platform:", info.Platform)
	table.AddRow("user agent:", version.UserAgent())
	return table.String()
}
