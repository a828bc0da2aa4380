/**
 * @description
 * Data access for the like relation. A like is a single row keyed by
 * (post_id, post_type, user_id) with a unique constraint on that
 * tuple; counts are derived with COUNT queries, never cached.
 */
package store

import (
	"context"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
)

// LikeExists reports whether a like row exists for the given tuple.
func (r *Repository) LikeExists(ctx context.Context, postID string, postType domain.PostType, userID string) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS (
            SELECT 1 FROM post_likes
            WHERE post_id = $1 AND post_type = $2 AND user_id = $3
        )
    `
	err := r.db.QueryRow(ctx, query, postID, postType, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// InsertLike creates a like row. The ON CONFLICT clause makes a
// concurrent duplicate insert a no-op rather than an error.
func (r *Repository) InsertLike(ctx context.Context, postID string, postType domain.PostType, userID string) error {
	query := `
        INSERT INTO post_likes (post_id, post_type, user_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (post_id, post_type, user_id) DO NOTHING
    `
	_, err := r.db.Exec(ctx, query, postID, postType, userID)
	return err
}

// DeleteLike removes the caller's like row. Deleting a row that does
// not exist is not an error.
func (r *Repository) DeleteLike(ctx context.Context, postID string, postType domain.PostType, userID string) error {
	query := `
        DELETE FROM post_likes
        WHERE post_id = $1 AND post_type = $2 AND user_id = $3
    `
	_, err := r.db.Exec(ctx, query, postID, postType, userID)
	return err
}

// CountLikes returns the number of like rows for a content item.
func (r *Repository) CountLikes(ctx context.Context, postID string, postType domain.PostType) (int64, error) {
	var count int64
	query := `
        SELECT COUNT(*) FROM post_likes
        WHERE post_id = $1 AND post_type = $2
    `
	err := r.db.QueryRow(ctx, query, postID, postType).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
