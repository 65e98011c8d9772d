// Package fakeserver provides a scriptable inference server for tests.
//
//	srv := fakeserver.New(t, fakeserver.Script{
//		Chunks: fakeserver.Split(fakeserver.SSE.Frames(fakeserver.Tokens("Hello", " world")...), 7),
//	})
package fakeserver
