// Package httpserver builds the ledger's HTTP server. Handlers settle in
// memory or against local stores, so the write timeout is deliberately short;
// anything slower indicates a stuck store, not a large response.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server around the API router.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
