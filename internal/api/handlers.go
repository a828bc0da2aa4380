/**
 * @description
 * This file contains the HTTP handler functions for billing. Handlers
 * parse incoming requests, call the appropriate business logic in the
 * service layer, and write the HTTP response. All billing failures are
 * returned as a JSON {"error": message} body with status 400.
 */
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/app"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// Handler holds the application services that handlers interact with.
type Handler struct {
	billing *app.BillingService
	likes   *app.LikeService
	posts   *app.PostService
	webhook *app.WebhookProcessor
	logger  *slog.Logger

	// Fallback origin for checkout redirect URLs when the request
	// carries no Origin header (e.g. server-to-server calls).
	appBaseURL string
}

// NewHandler creates a new Handler with the given services.
func NewHandler(billing *app.BillingService, likes *app.LikeService, posts *app.PostService, webhook *app.WebhookProcessor, appBaseURL string, logger *slog.Logger) *Handler {
	return &Handler{
		billing:    billing,
		likes:      likes,
		posts:      posts,
		webhook:    webhook,
		appBaseURL: appBaseURL,
		logger:     logger,
	}
}

// identityFromRequest assembles the authenticated identity injected by
// the auth middleware.
func identityFromRequest(r *http.Request) (domain.Identity, bool) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		return domain.Identity{}, false
	}
	email, _ := EmailFromContext(r.Context())
	return domain.Identity{UserID: userID, Email: email}, true
}

// requestOrigin derives the base for checkout redirect URLs from the
// request's Origin header.
func (h *Handler) requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return h.appBaseURL
}

// handleGetStatus reports the caller's entitlement.
func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status, err := h.billing.GetStatus(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// handleCreateCheckoutSession starts a payment flow and returns the
// hosted checkout URL.
func (h *Handler) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req domain.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	url, err := h.billing.CreateCheckoutSession(r.Context(), identity, req, h.requestOrigin(r))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}

// handleCreatePortalSession returns a URL to the self-service billing
// management page.
func (h *Handler) handleCreatePortalSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	url, err := h.billing.CreatePortalSession(r.Context(), identity, h.requestOrigin(r))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}

// handleStripeWebhook verifies and applies payment-provider events.
func (h *Handler) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	err = h.webhook.Process(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidSignature) {
			respondWithError(w, http.StatusBadRequest, "invalid signature")
			return
		}
		h.logger.Error("webhook processing failed", "error", err)
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes a JSON error envelope. Messages are the
// service's own error text; provider internals are never exposed.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
