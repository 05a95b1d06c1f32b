package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout awaiting response headers" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestHTTPErrorClassifier_IsTransient_StatusErrors(t *testing.T) {
	classifier := NewHTTPErrorClassifier()

	tests := []struct {
		status      int
		isTransient bool
	}{
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{429, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{409, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := fmt.Errorf("send: %w", &StatusError{StatusCode: tt.status})
			if got := classifier.IsTransient(err); got != tt.isTransient {
				t.Errorf("IsTransient(%d) = %v, want %v", tt.status, got, tt.isTransient)
			}
		})
	}
}

func TestHTTPErrorClassifier_IsTransient_NetworkErrors(t *testing.T) {
	classifier := NewHTTPErrorClassifier()

	tests := []struct {
		name        string
		err         error
		isTransient bool
	}{
		{
			name:        "nil error",
			err:         nil,
			isTransient: false,
		},
		{
			name:        "connection refused",
			err:         &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			isTransient: true,
		},
		{
			name:        "connection reset",
			err:         &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET},
			isTransient: true,
		},
		{
			name:        "host unreachable",
			err:         &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH},
			isTransient: true,
		},
		{
			name:        "client timeout wrapped in url.Error",
			err:         &url.Error{Op: "Post", URL: "https://example.com", Err: timeoutErr{}},
			isTransient: true,
		},
		{
			name:        "temporary dns failure",
			err:         &net.DNSError{Err: "server misbehaving", Name: "api.cloudflare.com", IsTemporary: true},
			isTransient: true,
		},
		{
			name:        "permanent dns failure",
			err:         &net.DNSError{Err: "no such host", Name: "typo.invalid", IsNotFound: true},
			isTransient: false,
		},
		{
			name:        "untyped no such host",
			err:         errors.New("dial tcp: lookup typo.invalid: no such host"),
			isTransient: false,
		},
		{
			name:        "server hung up",
			err:         &url.Error{Op: "Post", URL: "https://example.com", Err: io.EOF},
			isTransient: true,
		},
		{
			name:        "unexpected eof",
			err:         io.ErrUnexpectedEOF,
			isTransient: true,
		},
		{
			name:        "caller cancelled",
			err:         &url.Error{Op: "Post", URL: "https://example.com", Err: context.Canceled},
			isTransient: false,
		},
		{
			name:        "broken pipe text",
			err:         errors.New("write: broken pipe"),
			isTransient: true,
		},
		{
			name:        "application error",
			err:         errors.New("no such table: users"),
			isTransient: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifier.IsTransient(tt.err); got != tt.isTransient {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.isTransient)
			}
		})
	}
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{StatusCode: 502}
	if err.Error() != "502 Bad Gateway" {
		t.Errorf("Error() = %q, want %q", err.Error(), "502 Bad Gateway")
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 503, 599} {
		if !IsRetryableStatus(code) {
			t.Errorf("IsRetryableStatus(%d) = false, want true", code)
		}
	}
	for _, code := range []int{200, 201, 301, 400, 404, 428} {
		if IsRetryableStatus(code) {
			t.Errorf("IsRetryableStatus(%d) = true, want false", code)
		}
	}
}
