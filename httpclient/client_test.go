package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_Do_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/model/state" {
			t.Errorf("expected /model/state, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("verbose") != "1" {
			t.Errorf("expected query verbose=1, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"model": "qwen"})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/model/state",
		Query:  map[string]string{"verbose": "1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "qwen") {
		t.Errorf("response body should contain qwen, got %s", resp.Body)
	}
}

func TestClient_Do_POST_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "qwen" {
			t.Errorf("unexpected body: %v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/model/start",
		Body:   map[string]any{"name": "qwen", "ctx": 2048},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	c, _ := New(Config{
		BaseURL: srv.URL,
		Auth:    BearerAuth("client-token"),
		Headers: map[string]string{"X-Default": "d", "X-Override": "client"},
	})
	_, err := c.Do(context.Background(), Request{
		Method:  http.MethodGet,
		Path:    "/",
		Headers: map[string]string{"X-Override": "request"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checks := map[string]string{
		"Authorization": "Bearer client-token",
		"X-Default":     "d",
		"X-Override":    "request",
	}
	for k, want := range checks {
		if got.Get(k) != want {
			t.Errorf("%s = %q, want %q", k, got.Get(k), want)
		}
	}
	if !strings.HasPrefix(got.Get("User-Agent"), "inferstream/") {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
}

func TestClient_RequestAuthOverride(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Auth: BearerAuth("client")})
	_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/", Auth: BearerAuth("request")})
	if auth != "Bearer request" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestClient_Do_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not found"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/model/load"})
	if err == nil {
		t.Fatal("expected error")
	}
	if resp == nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected response with status 500, got %+v", resp)
	}
	var he *Error
	if !errors.As(err, &he) || he.Code != ErrCodeServer || string(he.Body) != "model not found" {
		t.Errorf("unexpected error: %+v", err)
	}
}

func TestClient_Do_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsConnection(err) {
		t.Errorf("expected connection error, got %v", err)
	}
}

func TestClient_Do_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsTimeout(err) {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestClient_DoStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if accept := r.Header.Get("Accept"); !strings.Contains(accept, "text/event-stream") {
			t.Errorf("Accept = %q", accept)
		}
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"data: {\"con", "tent\":\"hi\"}\n\n", "data: [DONE]\n\n"} {
			_, _ = w.Write([]byte(chunk))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	stream, err := c.DoStream(context.Background(), Request{Method: http.MethodPost, Path: "/completion", Body: map[string]any{"stream": true}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if !stream.IsEventStream() {
		t.Errorf("expected event stream, media type %q", stream.MediaType())
	}
	body, err := io.ReadAll(stream.Body)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if string(body) != "data: {\"content\":\"hi\"}\n\ndata: [DONE]\n\n" {
		t.Errorf("body = %q", body)
	}
}

func TestClient_DoStream_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	stream, err := c.DoStream(context.Background(), Request{Method: http.MethodPost, Path: "/completion"})
	if stream != nil {
		t.Fatal("expected no stream for non-2xx status")
	}
	if !IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if string(err.(*Error).Body) != "bad key" {
		t.Errorf("body = %q", err.(*Error).Body)
	}
}

func TestClient_DoStream_IdleTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte("{\"content\":\"a\"}\n"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := New(Config{BaseURL: srv.URL, IdleTimeout: 100 * time.Millisecond})
	stream, err := c.DoStream(context.Background(), Request{Method: http.MethodPost, Path: "/completion"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	_, err = io.ReadAll(stream.Body)
	if !IsTimeout(err) || !errors.Is(err, ErrIdleTimeout) {
		t.Errorf("expected idle timeout, got %v", err)
	}
}

func TestClient_DoStream_IdleTimeoutBeforeHeaders(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := New(Config{BaseURL: srv.URL, IdleTimeout: 50 * time.Millisecond})
	_, err := c.DoStream(context.Background(), Request{Method: http.MethodPost, Path: "/completion"})
	if !IsTimeout(err) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestClient_DoStream_Canceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c, _ := New(Config{BaseURL: srv.URL})
	stream, err := c.DoStream(ctx, Request{Method: http.MethodPost, Path: "/completion"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	time.AfterFunc(50*time.Millisecond, cancel)
	_, err = io.ReadAll(stream.Body)
	if !IsCanceled(err) {
		t.Errorf("expected canceled error, got %v", err)
	}
}
