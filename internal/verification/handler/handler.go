// Package handler exposes the verification engine over HTTP.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustboard/internal/platform/config"
	"trustboard/internal/verification/models"
	dErrors "trustboard/pkg/domain-errors"
	"trustboard/pkg/platform/httputil"
	"trustboard/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Verifier,CrossVerifier

// Verifier answers a single query.
type Verifier interface {
	Verify(ctx context.Context, q models.VerificationQuery) (*models.VerificationResult, error)
}

// CrossVerifier answers a batch of queries and aggregates them.
type CrossVerifier interface {
	VerifyAll(ctx context.Context, req models.CrossVerificationRequest) (*models.CrossVerificationResult, error)
}

// Handler serves the verification endpoints.
type Handler struct {
	verifier   Verifier
	cross      CrossVerifier
	logger     *slog.Logger
	maxTimeout time.Duration
}

type Option func(*Handler)

// WithMaxTimeout caps the timeout_ms a cross-verification may ask for.
func WithMaxTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.maxTimeout = d
		}
	}
}

func New(single Verifier, cross CrossVerifier, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{verifier: single, cross: cross, logger: logger, maxTimeout: config.DefaultMaxCrossVerifyTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/verifications", h.handleVerify)
	r.Post("/v1/cross-verifications", h.handleCrossVerify)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.verifier.Verify(ctx, req.toQuery(requestcontext.RequesterID(ctx), requestcontext.Now(ctx)))
	if err != nil {
		h.logFailure(ctx, "verification failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleCrossVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CrossVerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if req.TimeoutMS > h.maxTimeout.Milliseconds() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("timeout_ms must not exceed %d", h.maxTimeout.Milliseconds())))
		return
	}

	cross := req.toRequest(requestcontext.RequesterID(ctx), requestcontext.Now(ctx))
	if cross.ID == "" {
		cross.ID = requestID
	}
	res, err := h.cross.VerifyAll(ctx, cross)
	if err != nil {
		h.logFailure(ctx, "cross-verification failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeValidation || code == dErrors.CodeBadRequest {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.ErrorContext(ctx, msg, "request_id", requestID, "code", code, "error", err)
}
