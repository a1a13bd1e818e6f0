package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Post is a published post recorded in the ledger.
type Post struct {
	ID        int64
	TootIndex int
	Text      string
	Platform  string
	StatusID  sql.NullString
	URI       sql.NullString
	URL       sql.NullString
	PostedAt  time.Time
}

// RecordPostParams holds the values for a new ledger row.
type RecordPostParams struct {
	TootIndex int
	Text      string
	Platform  string
	StatusID  string
	URI       string
	URL       string
	PostedAt  time.Time
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// RecordPost inserts a post and returns its row id.
func (s *Store) RecordPost(ctx context.Context, p RecordPostParams) (int64, error) {
	postedAt := p.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now()
	}

	res, err := s.ExecContext(ctx, `
		INSERT INTO posts (toot_index, text, platform, status_id, uri, url, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.TootIndex, p.Text, p.Platform,
		nullString(p.StatusID), nullString(p.URI), nullString(p.URL),
		postedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecentPosts returns up to limit posts, newest first.
func (s *Store) RecentPosts(ctx context.Context, limit int) ([]Post, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, toot_index, text, platform, status_id, uri, url, posted_at
		FROM posts
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var (
			p        Post
			postedAt string
		)
		if err := rows.Scan(&p.ID, &p.TootIndex, &p.Text, &p.Platform,
			&p.StatusID, &p.URI, &p.URL, &postedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.PostedAt, err = time.Parse(time.RFC3339Nano, postedAt)
		if err != nil {
			return nil, fmt.Errorf("parse posted_at %q: %w", postedAt, err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

// CountPosts returns the number of recorded posts.
func (s *Store) CountPosts(ctx context.Context) (int64, error) {
	var n int64
	if err := s.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}
