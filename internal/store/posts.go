package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bachecahq/bacheca/internal/model"
)

// CreatePost inserts a new post. The CreatedAt field on p is populated.
func (s *Store) CreatePost(ctx context.Context, p *model.Post) error {
	p.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO posts (id, author_id, author_name, content, created_at)
		VALUES (:id, :author_id, :author_name, :content, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, p); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetPost returns a post by ID.
func (s *Store) GetPost(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := s.db.GetContext(ctx, &p, s.rebind("SELECT * FROM posts WHERE id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

// ListPosts returns all posts, newest first. Clients rely on this order and
// never re-sort.
func (s *Store) ListPosts(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	if err := s.db.SelectContext(ctx, &posts, "SELECT * FROM posts ORDER BY created_at DESC, id"); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// ListPostsByAuthor returns all posts by one author, newest first.
func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	var posts []model.Post
	q := s.rebind("SELECT * FROM posts WHERE author_id = ? ORDER BY created_at DESC, id")
	if err := s.db.SelectContext(ctx, &posts, q, authorID); err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return posts, nil
}

// SearchPosts returns posts whose content contains the query, matched
// case-insensitively, newest first.
func (s *Store) SearchPosts(ctx context.Context, query string) ([]model.Post, error) {
	var posts []model.Post
	q := s.rebind(`SELECT * FROM posts WHERE LOWER(content) LIKE LOWER(?) ESCAPE '\' ORDER BY created_at DESC, id`)
	pattern := "%" + escapeLike(query) + "%"
	if err := s.db.SelectContext(ctx, &posts, q, pattern); err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return posts, nil
}

// DeletePost removes a post by ID.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM posts WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// escapeLike neutralizes LIKE metacharacters in user input so a search for
// "100%" matches literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
