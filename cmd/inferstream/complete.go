package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/inferstream/bootstrap"
	"github.com/kbukum/inferstream/infer"
	"github.com/kbukum/inferstream/logger"
	"github.com/kbukum/inferstream/protocol"
)

type completeOptions struct {
	grammar  string
	template string
	stop     []string
	params   []string
	noStream bool
	summary  bool
}

func newCompleteCmd(flags *globalFlags) *cobra.Command {
	o := &completeOptions{}
	cmd := &cobra.Command{
		Use:   "complete [prompt...]",
		Short: "Stream a completion to stdout",
		Long: `Loads the model and streams the completion of the prompt to stdout.
The prompt is read from stdin when no argument (or "-") is given.

With --grammar the output is checked once generation ends and, if it does
not parse, the server is asked once to repair it. Only the final text is
printed in that mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			params, err := parseParams(o.params)
			if err != nil {
				return err
			}
			grammar, err := grammarFlag(o.grammar)
			if err != nil {
				return err
			}

			app, client, err := flags.newApp()
			if err != nil {
				return err
			}
			req := infer.CompletionRequest{
				Prompt:         prompt,
				Template:       o.template,
				Stop:           o.stop,
				SamplingParams: params,
			}
			out := cmd.OutOrStdout()

			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				var (
					res *infer.Result
					err error
				)
				switch {
				case o.noStream:
					res, err = client.Complete(ctx, infer.ModelRef{}, req)
				case grammar != nil:
					res, err = client.RunStructured(ctx, infer.ModelRef{}, req, grammar, nil)
				default:
					res, err = client.Run(ctx, infer.ModelRef{}, req, printTokens(out))
				}
				if err != nil {
					return err
				}
				if o.noStream || grammar != nil {
					if _, err := fmt.Fprint(out, res.Text); err != nil {
						return err
					}
				}
				if res.State == infer.StateCancelled {
					app.Logger.Warn("completion cancelled", logger.Fields(logger.FieldSessionID, res.SessionID))
				}
				_, _ = fmt.Fprintln(out)
				if o.summary {
					return writeSummary(app, res, cmd.ErrOrStderr())
				}
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.grammar, "grammar", "g", "", "validate the output as json, yaml or toml")
	f.StringVar(&o.template, "template", "", `prompt template, e.g. "<s>[INST] {prompt} [/INST]"`)
	f.StringArrayVar(&o.stop, "stop", nil, "stop sequence (repeatable)")
	f.StringArrayVarP(&o.params, "param", "p", nil, "sampling parameter name=value (repeatable)")
	f.BoolVar(&o.noStream, "no-stream", false, "request the whole completion at once")
	f.BoolVar(&o.summary, "summary", false, "print a session summary to stderr")
	cmd.MarkFlagsMutuallyExclusive("grammar", "no-stream")
	return cmd
}

func printTokens(w io.Writer) func(protocol.Message) {
	return func(m protocol.Message) {
		if m.Kind == protocol.KindToken {
			_, _ = io.WriteString(w, m.Content)
		}
	}
}

func writeSummary(app *bootstrap.App[*AppConfig], res *infer.Result, w io.Writer) error {
	s := app.Summary
	if res.SessionID != "" {
		s.Add("session", res.SessionID)
	}
	s.Add("model", res.Model)
	s.Add("state", res.State)
	if res.Tokens > 0 {
		s.Add("tokens", res.Tokens)
		s.Add("first token", res.FirstToken)
	}
	s.Add("duration", res.Duration)
	if res.ProtocolErrors > 0 {
		s.Add("bad frames", res.ProtocolErrors)
	}
	if st := res.Stats; st != nil {
		s.Add("tokens/s", fmt.Sprintf("%.1f", st.TokensPerSecond))
		if st.TotalTimeFormat != "" {
			s.Add("server time", st.TotalTimeFormat)
		}
	}
	if res.Repair != nil {
		s.Add("repaired", true)
	}
	return s.Write(w)
}
