package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newModelsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the server can load",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, client, err := flags.newApp()
			if err != nil {
				return err
			}
			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				models, err := client.Models(ctx)
				if err != nil {
					return err
				}
				for _, m := range models {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), m); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
