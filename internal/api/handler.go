package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"pgstay-backend/internal/engine"
	"pgstay-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	engine  *engine.Engine
	webpush *webpush.Options
	log     *logrus.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, e *engine.Engine, webpushOptions *webpush.Options, log *logrus.Logger) *Handler {
	return &Handler{
		store:   s,
		engine:  e,
		webpush: webpushOptions,
		log:     log,
	}
}
