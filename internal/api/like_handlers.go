/**
 * @description
 * HTTP handlers for like toggling and counts. The toggle request
 * carries the caller's current belief about liked state; the response
 * is the definite new state plus the derived count, letting the client
 * reconcile its optimistic +1/-1.
 */
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/app"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
)

func postRef(r *http.Request) (string, domain.PostType) {
	return chi.URLParam(r, "postID"), domain.PostType(chi.URLParam(r, "postType"))
}

// handleToggleLike flips the caller's like for a content item.
func (h *Handler) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	postID, postType := postRef(r)
	if !postType.Valid() {
		respondWithError(w, http.StatusBadRequest, app.ErrInvalidPostType.Error())
		return
	}

	var req struct {
		Liked bool `json:"liked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	liked, err := h.likes.Toggle(r.Context(), userID, postID, postType, req.Liked)
	if err != nil {
		if errors.Is(err, app.ErrToggleRateLimited) {
			respondWithError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		// The toggle result still tells the caller which state to
		// display, so return it alongside the error message.
		respondWithJSON(w, http.StatusInternalServerError, map[string]any{
			"liked": liked,
			"error": "failed to update like",
		})
		return
	}

	count, err := h.likes.State(r.Context(), userID, postID, postType)
	if err != nil {
		// Count is advisory; the toggle itself succeeded.
		respondWithJSON(w, http.StatusOK, map[string]any{"liked": liked})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"liked": liked, "count": count.Count})
}

// handleGetLikes returns the like count and the caller's liked state.
func (h *Handler) handleGetLikes(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	postID, postType := postRef(r)
	if !postType.Valid() {
		respondWithError(w, http.StatusBadRequest, app.ErrInvalidPostType.Error())
		return
	}

	state, err := h.likes.State(r.Context(), userID, postID, postType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}
