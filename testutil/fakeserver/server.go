package fakeserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Script describes how the server answers. Zero values give a healthy
// server that loads every model and streams nothing.
type Script struct {
	// LoadStatus answers model load requests. Defaults to 204.
	LoadStatus int
	LoadBody   string

	// StreamStatus answers streaming completion requests. Defaults to 200.
	StreamStatus int
	// ContentType overrides the announced media type.
	ContentType string
	// Chunks are written in order, each followed by a flush.
	Chunks []string
	// ChunkDelay is slept before every chunk after the first.
	ChunkDelay time.Duration
	// Hold keeps the response open after the last chunk until the client
	// goes away.
	Hold bool

	// CompletionStatus and Completion answer non-streaming requests.
	// CompletionStatus defaults to 200.
	CompletionStatus int
	Completion       any

	// TaskStatus and TaskText answer repair tasks. TaskStatus defaults to 200.
	TaskStatus int
	TaskText   string

	Models []string
}

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into a map.
func (r Request) JSON() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(r.Body, &m)
	return m
}

// Server is a scriptable inference server on a local httptest listener.
// It understands the routes of both goinfer dialects.
type Server struct {
	URL string

	ts       *httptest.Server
	mu       sync.Mutex
	script   Script
	requests []Request
	aborted  chan struct{}
}

// New starts a server answering with sc. It is closed when the test ends.
func New(t testing.TB, sc Script) *Server {
	t.Helper()
	s := &Server{script: sc, aborted: make(chan struct{}, 1)}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.record)
	engine.POST("/model/start", s.load)
	engine.POST("/model/load", s.load)
	engine.POST("/completion", s.completion)
	engine.POST("/infer", s.completion)
	engine.POST("/task/execute", s.task)
	engine.GET("/completion/abort", s.abort)
	engine.GET("/model/state", s.models)

	s.ts = httptest.NewServer(engine)
	s.URL = s.ts.URL
	t.Cleanup(s.Close)
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.ts.CloseClientConnections()
	s.ts.Close()
}

// SetScript replaces the script for subsequent requests.
func (s *Server) SetScript(sc Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = sc
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Paths returns the paths of the requests received so far.
func (s *Server) Paths() []string {
	reqs := s.Requests()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Path
	}
	return out
}

// Last returns the most recent request to path.
func (s *Server) Last(path string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

// Aborted is signalled when an abort request arrives.
func (s *Server) Aborted() <-chan struct{} { return s.aborted }

func (s *Server) current() Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.script
}

func (s *Server) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(strings.NewReader(string(body)))
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Header: c.Request.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) load(c *gin.Context) {
	sc := s.current()
	status := orDefault(sc.LoadStatus, http.StatusNoContent)
	if sc.LoadBody == "" {
		c.Status(status)
		return
	}
	c.String(status, sc.LoadBody)
}

func (s *Server) completion(c *gin.Context) {
	sc := s.current()
	var req struct {
		Stream bool `json:"stream"`
	}
	_ = c.ShouldBindJSON(&req)
	if !req.Stream {
		status := orDefault(sc.CompletionStatus, http.StatusOK)
		if sc.Completion == nil {
			c.Status(status)
			return
		}
		c.JSON(status, sc.Completion)
		return
	}

	status := orDefault(sc.StreamStatus, http.StatusOK)
	if status != http.StatusOK {
		c.String(status, "stream refused")
		return
	}
	contentType := sc.ContentType
	if contentType == "" {
		contentType = SSE.ContentType()
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "no-cache")
	c.Status(status)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for i, chunk := range sc.Chunks {
		if i > 0 && sc.ChunkDelay > 0 {
			select {
			case <-time.After(sc.ChunkDelay):
			case <-ctx.Done():
				return
			}
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return
		}
		c.Writer.Flush()
	}
	if sc.Hold {
		<-ctx.Done()
	}
}

func (s *Server) task(c *gin.Context) {
	sc := s.current()
	status := orDefault(sc.TaskStatus, http.StatusOK)
	c.JSON(status, gin.H{"text": sc.TaskText})
}

func (s *Server) abort(c *gin.Context) {
	select {
	case s.aborted <- struct{}{}:
	default:
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) models(c *gin.Context) {
	models := s.current().Models
	if models == nil {
		models = []string{}
	}
	c.JSON(http.StatusOK, models)
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
