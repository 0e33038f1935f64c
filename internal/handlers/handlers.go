package handlers

import (
	"github.com/campusconfessions/backend/internal/auth"
	"github.com/campusconfessions/backend/internal/billing"
	"github.com/campusconfessions/backend/internal/email"
	"github.com/campusconfessions/backend/internal/moderation"
	"github.com/campusconfessions/backend/internal/notify"
	"github.com/campusconfessions/backend/internal/websocket"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth      *auth.Service
	notifier  *notify.Service
	filter    *moderation.Filter
	billing   *billing.Service
	mailer    email.Sender
	wsHandler *websocket.Handler
	hub       *websocket.Hub
}

// NewHandlers creates a new handlers instance
func NewHandlers(authService *auth.Service, notifier *notify.Service, filter *moderation.Filter) *Handlers {
	return &Handlers{
		auth:     authService,
		notifier: notifier,
		filter:   filter,
	}
}

// SetWebSocketHandler sets the WebSocket handler for real-time delivery
func (h *Handlers) SetWebSocketHandler(ws *websocket.Handler, hub *websocket.Hub) {
	h.wsHandler = ws
	h.hub = hub
}

// SetBillingService sets the Stripe billing service
func (h *Handlers) SetBillingService(b *billing.Service) {
	h.billing = b
}

// SetMailer sets the transactional email sender
func (h *Handlers) SetMailer(m email.Sender) {
	h.mailer = m
}
