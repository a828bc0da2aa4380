/**
 * @description
 * This file defines the like relation between a user and a content
 * item. The existence of a row is the sole source of truth for "liked"
 * state; counts are always derived by counting rows.
 */
package domain

import "time"

// PostType discriminates the content kinds a like can reference.
type PostType string

const (
	PostTypeIdeaVault  PostType = "idea_vault"
	PostTypeLegacy     PostType = "legacy"
	PostTypeMentorship PostType = "mentorship"
)

// Valid reports whether the post type is one of the known kinds.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeIdeaVault, PostTypeLegacy, PostTypeMentorship:
		return true
	}
	return false
}

// Like is a single persisted row denoting "user X likes post Y of type Z".
// Uniqueness over (post_id, post_type, user_id) is enforced by the store.
type Like struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	PostType  PostType  `json:"post_type"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeState is the response to a like toggle or count query.
type LikeState struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}
