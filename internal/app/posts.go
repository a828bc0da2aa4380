/**
 * @description
 * Business logic for user content: idea vault posts, legacy archive
 * entries, mentorship resources, and time-delayed scheduled messages.
 */
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
)

// Validation errors surfaced to API callers.
var (
	ErrInvalidPostType    = errors.New("unknown post type")
	ErrTitleRequired      = errors.New("title is required")
	ErrRecipientRequired  = errors.New("recipient email is required")
	ErrDeliveryTimeInPast = errors.New("delivery time must be in the future")
	ErrNotOwner           = errors.New("not the owner of this resource")
)

// PostRepository defines the store operations the post service needs.
type PostRepository interface {
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPost(ctx context.Context, postID string, postType domain.PostType) (*domain.Post, error)
	ListPostsByUser(ctx context.Context, userID string, postType domain.PostType) ([]domain.Post, error)
	UpdatePost(ctx context.Context, postID, userID, title, content string) (*domain.Post, error)
	DeletePost(ctx context.Context, postID string, postType domain.PostType, userID string) error

	CreateScheduledMessage(ctx context.Context, msg *domain.ScheduledMessage) (*domain.ScheduledMessage, error)
	ListScheduledMessagesByUser(ctx context.Context, userID string) ([]domain.ScheduledMessage, error)
	CancelScheduledMessage(ctx context.Context, messageID, userID string) (*domain.ScheduledMessage, error)
}

// PostService provides content management.
type PostService struct {
	repo PostRepository
}

// NewPostService creates a new post service.
func NewPostService(repo PostRepository) *PostService {
	return &PostService{repo: repo}
}

// CreatePostRequest is the input for creating a post.
type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreatePost stores a new post of the given type for the caller.
func (s *PostService) CreatePost(ctx context.Context, userID string, postType domain.PostType, req CreatePostRequest) (*domain.Post, error) {
	if !postType.Valid() {
		return nil, ErrInvalidPostType
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrTitleRequired
	}

	return s.repo.CreatePost(ctx, &domain.Post{
		ID:       uuid.NewString(),
		UserID:   userID,
		PostType: postType,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
	})
}

// GetPost retrieves a post by id and type.
func (s *PostService) GetPost(ctx context.Context, postID string, postType domain.PostType) (*domain.Post, error) {
	if !postType.Valid() {
		return nil, ErrInvalidPostType
	}
	return s.repo.GetPost(ctx, postID, postType)
}

// ListPosts returns the caller's posts of the given type.
func (s *PostService) ListPosts(ctx context.Context, userID string, postType domain.PostType) ([]domain.Post, error) {
	if !postType.Valid() {
		return nil, ErrInvalidPostType
	}
	return s.repo.ListPostsByUser(ctx, userID, postType)
}

// UpdatePost updates a post owned by the caller.
func (s *PostService) UpdatePost(ctx context.Context, userID, postID string, postType domain.PostType, req CreatePostRequest) (*domain.Post, error) {
	if !postType.Valid() {
		return nil, ErrInvalidPostType
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrTitleRequired
	}

	existing, err := s.repo.GetPost(ctx, postID, postType)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, ErrNotOwner
	}

	return s.repo.UpdatePost(ctx, postID, userID, strings.TrimSpace(req.Title), req.Content)
}

// DeletePost removes a post owned by the caller along with its likes.
func (s *PostService) DeletePost(ctx context.Context, userID, postID string, postType domain.PostType) error {
	if !postType.Valid() {
		return ErrInvalidPostType
	}
	return s.repo.DeletePost(ctx, postID, postType, userID)
}

// ScheduleMessageRequest is the input for creating a time-delayed message.
type ScheduleMessageRequest struct {
	RecipientEmail string    `json:"recipient_email"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	DeliverAt      time.Time `json:"deliver_at"`
}

// ScheduleMessage stores a new pending message for future delivery.
func (s *PostService) ScheduleMessage(ctx context.Context, userID string, req ScheduleMessageRequest) (*domain.ScheduledMessage, error) {
	if strings.TrimSpace(req.RecipientEmail) == "" {
		return nil, ErrRecipientRequired
	}
	if !req.DeliverAt.After(time.Now()) {
		return nil, ErrDeliveryTimeInPast
	}

	return s.repo.CreateScheduledMessage(ctx, &domain.ScheduledMessage{
		ID:             uuid.NewString(),
		UserID:         userID,
		RecipientEmail: strings.TrimSpace(req.RecipientEmail),
		Subject:        req.Subject,
		Body:           req.Body,
		DeliverAt:      req.DeliverAt.UTC(),
	})
}

// ListScheduledMessages returns the caller's scheduled messages.
func (s *PostService) ListScheduledMessages(ctx context.Context, userID string) ([]domain.ScheduledMessage, error) {
	return s.repo.ListScheduledMessagesByUser(ctx, userID)
}

// CancelScheduledMessage cancels one of the caller's pending messages.
func (s *PostService) CancelScheduledMessage(ctx context.Context, userID, messageID string) (*domain.ScheduledMessage, error) {
	return s.repo.CancelScheduledMessage(ctx, messageID, userID)
}
