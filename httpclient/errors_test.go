package httpclient

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeTimeout, "timeout"},
		{ErrCodeConnection, "connection"},
		{ErrCodeCanceled, "canceled"},
		{ErrCodeAuth, "auth"},
		{ErrCodeNotFound, "not_found"},
		{ErrCodeRateLimit, "rate_limit"},
		{ErrCodeValidation, "validation"},
		{ErrCodeServer, "server"},
		{ErrorCode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestError_Error(t *testing.T) {
	e := &Error{StatusCode: 404, Code: ErrCodeNotFound, Message: "HTTP 404"}
	want := "httpclient: not_found (HTTP 404): HTTP 404"
	if got := e.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	e2 := &Error{Code: ErrCodeConnection, Message: "connection refused"}
	want2 := "httpclient: connection: connection refused"
	if got := e2.Error(); got != want2 {
		t.Errorf("got %q, want %q", got, want2)
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("dial tcp: refused")
	e := NewConnectionError(inner)
	if !errors.Is(e, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
		isNil  bool
	}{
		{200, 0, true},
		{202, 0, true},
		{204, 0, true},
		{302, ErrCodeServer, false},
		{400, ErrCodeValidation, false},
		{401, ErrCodeAuth, false},
		{403, ErrCodeAuth, false},
		{404, ErrCodeNotFound, false},
		{429, ErrCodeRateLimit, false},
		{500, ErrCodeServer, false},
		{503, ErrCodeServer, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			err := ClassifyStatusCode(tt.status, []byte("body"))
			if tt.isNil {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Code != tt.want {
				t.Errorf("code = %v, want %v", err.Code, tt.want)
			}
			if err.StatusCode != tt.status || string(err.Body) != "body" {
				t.Errorf("status/body not carried: %+v", err)
			}
			if StatusCode(err) != tt.status {
				t.Errorf("StatusCode() = %d", StatusCode(err))
			}
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	boom := errors.New("read: connection reset")

	t.Run("idle timeout cause", func(t *testing.T) {
		ctx, cancel := context.WithCancelCause(context.Background())
		cancel(ErrIdleTimeout)
		err := classifyTransport(ctx, boom)
		if !IsTimeout(err) || !errors.Is(err, ErrIdleTimeout) {
			t.Errorf("got %v, want idle timeout", err)
		}
	})
	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 0)
		defer cancel()
		<-ctx.Done()
		if err := classifyTransport(ctx, boom); !IsTimeout(err) {
			t.Errorf("got %v, want timeout", err)
		}
	})
	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := classifyTransport(ctx, boom); !IsCanceled(err) {
			t.Errorf("got %v, want canceled", err)
		}
	})
	t.Run("live context", func(t *testing.T) {
		if err := classifyTransport(context.Background(), boom); !IsConnection(err) {
			t.Errorf("got %v, want connection", err)
		}
	})
}

func TestErrorHelpersOnForeignErrors(t *testing.T) {
	plain := errors.New("plain")
	if IsTimeout(plain) || IsCanceled(plain) || IsAuth(plain) || IsNotFound(plain) || StatusCode(plain) != 0 {
		t.Error("helpers should report false for non-httpclient errors")
	}
	if !IsCanceled(fmt.Errorf("read: %w", NewCanceledError(context.Canceled))) {
		t.Error("expected IsCanceled through wrapping")
	}
	wrapped := fmt.Errorf("load: %w", ClassifyStatusCode(401, nil))
	if !IsAuth(wrapped) {
		t.Error("expected IsAuth through wrapping")
	}
}
