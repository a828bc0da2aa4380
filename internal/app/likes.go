/**
 * @description
 * Like toggle business logic. A like is a relation row between a user
 * and a content item; this service flips it with a single-flight guard
 * per tuple and reports the definite resulting state so callers can
 * reconcile optimistic UI updates.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
)

// ErrToggleRateLimited is returned when a user exceeds the like-toggle
// rate limit.
var ErrToggleRateLimited = errors.New("too many like toggles, slow down")

// LikeRepository defines the store operations the like service needs.
type LikeRepository interface {
	LikeExists(ctx context.Context, postID string, postType domain.PostType, userID string) (bool, error)
	InsertLike(ctx context.Context, postID string, postType domain.PostType, userID string) error
	DeleteLike(ctx context.Context, postID string, postType domain.PostType, userID string) error
	CountLikes(ctx context.Context, postID string, postType domain.PostType) (int64, error)
}

// ToggleRateLimiter limits how often a subject may perform an action
// within a window. A nil limiter disables limiting.
type ToggleRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// LikeService provides like toggling and counting.
type LikeService struct {
	repo        LikeRepository
	limiter     ToggleRateLimiter
	toggleLimit int
	logger      *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewLikeService creates a new like service. limiter may be nil.
func NewLikeService(repo LikeRepository, limiter ToggleRateLimiter, toggleLimit int, logger *slog.Logger) *LikeService {
	return &LikeService{
		repo:        repo,
		limiter:     limiter,
		toggleLimit: toggleLimit,
		logger:      logger,
		inFlight:    make(map[string]struct{}),
	}
}

// Toggle flips the like relation for (postID, postType) scoped to the
// caller and returns the definite resulting liked state. The caller's
// current belief is returned unchanged when a toggle for the same
// tuple is already in progress or when the store operation fails, so
// the UI reverts instead of drifting out of sync with the store.
func (s *LikeService) Toggle(ctx context.Context, userID, postID string, postType domain.PostType, currentlyLiked bool) (bool, error) {
	key := userID + "|" + string(postType) + "|" + postID

	s.mu.Lock()
	if _, busy := s.inFlight[key]; busy {
		s.mu.Unlock()
		// Single-flight guard: drop, don't queue.
		return currentlyLiked, nil
	}
	s.inFlight[key] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
	}()

	if s.limiter != nil && s.toggleLimit > 0 {
		count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, "like_toggle", userID, s.toggleLimit, time.Minute)
		if err != nil {
			// Limiter trouble should not block the product action.
			s.logger.Warn("like toggle rate limiter unavailable", "error", err)
		} else if count > s.toggleLimit {
			return currentlyLiked, fmt.Errorf("%w (retry in %ds)", ErrToggleRateLimited, retryAfter)
		}
	}

	if currentlyLiked {
		if err := s.repo.DeleteLike(ctx, postID, postType, userID); err != nil {
			s.logger.Error("failed to remove like", "post_id", postID, "error", err)
			return true, err
		}
		return false, nil
	}

	// Check first so a duplicate row from a prior partial failure is
	// reported as liked instead of inserted again.
	exists, err := s.repo.LikeExists(ctx, postID, postType, userID)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	if err := s.repo.InsertLike(ctx, postID, postType, userID); err != nil {
		s.logger.Error("failed to add like", "post_id", postID, "error", err)
		return false, err
	}
	return true, nil
}

// State returns the like count for a content item and whether the
// caller has liked it. The count is always recomputed from row
// existence.
func (s *LikeService) State(ctx context.Context, userID, postID string, postType domain.PostType) (*domain.LikeState, error) {
	count, err := s.repo.CountLikes(ctx, postID, postType)
	if err != nil {
		return nil, err
	}
	liked, err := s.repo.LikeExists(ctx, postID, postType, userID)
	if err != nil {
		return nil, err
	}
	return &domain.LikeState{Liked: liked, Count: count}, nil
}
