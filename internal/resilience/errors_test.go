package resilience

import (
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"tagged transient", NewTransientError(eris.New("server overloaded"), 503), true},
		{"wrapped transient", fmt.Errorf("source call: %w", NewTransientError(eris.New("rate limited"), 429)), true},
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"string pattern", eris.New("Get \"http://x\": connection reset by peer"), true},
		{"tls handshake", eris.New("tls handshake timeout"), true},
		{"plain error", eris.New("400 bad request"), false},
		{"classifier refusal", eris.New("invalid api key"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestTransientErrorUnwraps(t *testing.T) {
	inner := eris.New("boom")
	te := NewTransientError(inner, 502)

	assert.Equal(t, "boom", te.Error())
	assert.Equal(t, 502, te.StatusCode)
	assert.ErrorIs(t, te, inner)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 201, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestIsTransientNetTimeout(t *testing.T) {
	// A dialer with an immediate deadline produces a live net.Error.
	d := net.Dialer{Deadline: time.Now().Add(-time.Second)}
	_, err := d.Dial("tcp", "127.0.0.1:1")
	if err == nil {
		t.Skip("dial unexpectedly succeeded")
	}
	assert.True(t, IsTransient(err))
}
