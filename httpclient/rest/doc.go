// Package rest adds typed JSON helpers on top of httpclient:
//
//	c := rest.NewFromClient(httpClient)
//	state, err := rest.Get[ModelState](ctx, c, "/model/state")
//	out, err := rest.Post[TaskResult](ctx, c, "/task/execute", task)
package rest
