package testutil

import (
	"net/http"
	"time"

	"trustboard/pkg/requestcontext"
)

// WithRequester sets the requester id the way the Requester middleware does.
func WithRequester(req *http.Request, requesterID string) *http.Request {
	return req.WithContext(requestcontext.WithRequesterID(req.Context(), requesterID))
}

// WithRequestTime pins the request clock the way the requesttime middleware does.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
