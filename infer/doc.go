// Package infer is a client for streaming completion servers.
//
// A completion runs as a Session: the model is loaded, the completion is
// requested with streaming on, and the response is demultiplexed into
// protocol messages that are forwarded in order. The session ends in
// Completed, Failed or Cancelled.
//
//	client, err := infer.New(infer.Config{BaseURL: "http://localhost:5143"})
//	res, err := client.Run(ctx, infer.ModelRef{Name: "mistral-7b"},
//		infer.CompletionRequest{Prompt: "Say hello"},
//		func(m protocol.Message) {
//			if m.Kind == protocol.KindToken {
//				fmt.Print(m.Content)
//			}
//		})
//
// RunStructured additionally checks the final text against a repair.Grammar
// and, when it does not conform, asks the server once to fix it.
package infer
