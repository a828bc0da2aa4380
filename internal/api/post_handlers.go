/**
 * @description
 * HTTP handlers for content posts and time-delayed scheduled messages.
 */
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/app"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/store"
)

func (h *Handler) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	_, postType := postRef(r)
	var req app.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.posts.CreatePost(r.Context(), userID, postType, req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, post)
}

func (h *Handler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	_, postType := postRef(r)
	posts, err := h.posts.ListPosts(r.Context(), userID, postType)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, posts)
}

func (h *Handler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	postID, postType := postRef(r)
	post, err := h.posts.GetPost(r.Context(), postID, postType)
	if err != nil {
		if errors.Is(err, store.ErrPostNotFound) {
			respondWithError(w, http.StatusNotFound, "post not found")
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, post)
}

func (h *Handler) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	postID, postType := postRef(r)
	var req app.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.posts.UpdatePost(r.Context(), userID, postID, postType, req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrPostNotFound):
			respondWithError(w, http.StatusNotFound, "post not found")
		case errors.Is(err, app.ErrNotOwner):
			respondWithError(w, http.StatusForbidden, err.Error())
		default:
			respondWithError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusOK, post)
}

func (h *Handler) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	postID, postType := postRef(r)
	if err := h.posts.DeletePost(r.Context(), userID, postID, postType); err != nil {
		if errors.Is(err, store.ErrPostNotFound) {
			respondWithError(w, http.StatusNotFound, "post not found")
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleScheduleMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req app.ScheduleMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.posts.ScheduleMessage(r.Context(), userID, req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleListScheduledMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	msgs, err := h.posts.ListScheduledMessages(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, msgs)
}

func (h *Handler) handleCancelScheduledMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	msg, err := h.posts.CancelScheduledMessage(r.Context(), userID, chi.URLParam(r, "messageID"))
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			respondWithError(w, http.StatusNotFound, "no pending message to cancel")
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, msg)
}
