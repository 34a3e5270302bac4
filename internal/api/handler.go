package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"hort-presence-backend/internal/session"
	"hort-presence-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	backend *session.Client
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, backend *session.Client, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		backend: backend,
		webpush: webpushOptions,
	}
}
