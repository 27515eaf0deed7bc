package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAppliesTimeouts(t *testing.T) {
	mux := http.NewServeMux()
	srv := New(":8080", mux)

	assert.Equal(t, ":8080", srv.Addr)
	assert.NotNil(t, srv.Handler)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	// The write timeout must exceed the 30s per-request handler deadline.
	assert.Greater(t, srv.WriteTimeout, 30*time.Second)
	assert.NotZero(t, srv.ReadTimeout)
	assert.NotZero(t, srv.IdleTimeout)
}
