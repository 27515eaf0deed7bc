// Package httpserver configures the process HTTP server. The API serves
// short JSON requests only; the SLA monitor runs in-process rather than over
// HTTP, so every connection timeout can stay tight.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 60 * time.Second

	// Must outlast the 30s handler deadline set by the transport middleware,
	// or the connection closes before the timeout response is written.
	writeTimeout = 35 * time.Second
)

// New builds the server for the given address and router.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
