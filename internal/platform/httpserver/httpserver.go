package httpserver

import (
	"net/http"
	"time"
)

// writeSlack covers encoding and flushing the response after the engine returns.
const writeSlack = 15 * time.Second

// New builds an HTTP server with sane defaults for this project.
// maxRequestTimeout is the longest cross-verification the API accepts; the
// write deadline must outlast it or best-effort results are cut off.
func New(addr string, handler http.Handler, maxRequestTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      maxRequestTimeout + writeSlack,
		IdleTimeout:       60 * time.Second,
	}
}
