/**
 * @description
 * Data access for user content posts (idea vault, legacy archive,
 * mentorship resources).
 */
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/domain"
)

const postColumns = "id, user_id, post_type, title, content, created_at, updated_at"

func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	err := row.Scan(&p.ID, &p.UserID, &p.PostType, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreatePost inserts a new post and returns the stored row.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	query := `
        INSERT INTO posts (id, user_id, post_type, title, content)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + postColumns
	return scanPost(r.db.QueryRow(ctx, query, post.ID, post.UserID, post.PostType, post.Title, post.Content))
}

// GetPost retrieves a post by id and type.
func (r *Repository) GetPost(ctx context.Context, postID string, postType domain.PostType) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1 AND post_type = $2`
	return scanPost(r.db.QueryRow(ctx, query, postID, postType))
}

// ListPostsByUser returns a user's posts of a given type, newest first.
func (r *Repository) ListPostsByUser(ctx context.Context, userID string, postType domain.PostType) ([]domain.Post, error) {
	query := `
        SELECT ` + postColumns + `
        FROM posts
        WHERE user_id = $1 AND post_type = $2
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID, postType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.PostType, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// UpdatePost updates a post's title and content, scoped to its owner.
func (r *Repository) UpdatePost(ctx context.Context, postID, userID, title, content string) (*domain.Post, error) {
	query := `
        UPDATE posts
        SET title = $3, content = $4, updated_at = NOW()
        WHERE id = $1 AND user_id = $2
        RETURNING ` + postColumns
	return scanPost(r.db.QueryRow(ctx, query, postID, userID, title, content))
}

// DeletePost removes a post and its like rows in one transaction,
// scoped to its owner.
func (r *Repository) DeletePost(ctx context.Context, postID string, postType domain.PostType, userID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM post_likes WHERE post_id = $1 AND post_type = $2`,
		postID, postType,
	); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM posts WHERE id = $1 AND post_type = $2 AND user_id = $3`,
		postID, postType, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}

	return tx.Commit(ctx)
}
