package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/inferstream/repair"
)

func newFixCmd(flags *globalFlags) *cobra.Command {
	var (
		grammarName string
		instruction string
	)
	cmd := &cobra.Command{
		Use:   "fix [file]",
		Short: "Validate structured text and repair it through the server if needed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grammar, err := grammarFlag(grammarName)
			if err != nil {
				return err
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readFileOrStdin(path, cmd.InOrStdin())
			if err != nil {
				return err
			}

			app, client, err := flags.newApp()
			if err != nil {
				return err
			}
			opts := []repair.Option{repair.WithLogger(app.Logger.WithComponent("repair"))}
			if instruction != "" {
				opts = append(opts, repair.WithInstruction(instruction))
			}

			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				out, err := repair.New(grammar, client.Repairer(), opts...).Run(ctx, text)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Text)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&grammarName, "grammar", "g", "json", "grammar: json, yaml or toml")
	cmd.Flags().StringVar(&instruction, "instruction", "", "repair instruction sent to the server")
	return cmd
}
