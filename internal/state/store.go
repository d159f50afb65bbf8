package state

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store persists session transcripts and the knowledge passages backing
// pre-turn retrieval augmentation.
type Store struct {
	db    *sql.DB
	nowFn func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, nowFn: func() time.Time { return time.Now().UTC() }}
}

type SessionInfo struct {
	Name      string    `json:"name"`
	Messages  int       `json:"messages"`
	UpdatedAt time.Time `json:"updated"`
}

type MessageRow struct {
	ID        string    `json:"id"`
	Session   string    `json:"session"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendMessage records one transcript row, creating the session on first
// use and bumping its updated_at.
func (s *Store) AppendMessage(ctx context.Context, session, role, content string) error {
	session = strings.TrimSpace(session)
	if session == "" {
		return fmt.Errorf("session is required")
	}
	now := s.nowFn().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transcript tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (name, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at
	`, session, now, now); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, session, role, content, created_at) VALUES (?, ?, ?, ?, ?)
	`, ulid.Make().String(), session, role, content, now); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.updated_at, COUNT(m.id)
		FROM sessions s LEFT JOIN messages m ON m.session = s.name
		GROUP BY s.name ORDER BY s.updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var updated string
		if err := rows.Scan(&info.Name, &updated, &info.Messages); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// RecentMessages returns up to limit transcript rows for a session, oldest
// first.
func (s *Store) RecentMessages(ctx context.Context, session string, limit int) ([]MessageRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session, role, content, created_at FROM (
			SELECT id, session, role, content, created_at FROM messages
			WHERE session = ? ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at ASC, id ASC
	`, session, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var m MessageRow
		var created string
		if err := rows.Scan(&m.ID, &m.Session, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSession(ctx context.Context, session string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session = ?`, session); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE name = ?`, session)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("session %q not found", session)
	}
	return tx.Commit()
}

// AddPassage stores one knowledge passage for retrieval augmentation.
func (s *Store) AddPassage(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("content is required")
	}
	id := ulid.Make().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO passages (id, content, created_at) VALUES (?, ?, ?)
	`, id, content, s.nowFn().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert passage: %w", err)
	}
	return id, nil
}

// Ready reports whether the retrieval store is usable.
func (s *Store) Ready() bool {
	return s != nil && s.db != nil
}

// Retrieve returns up to limit passages ranked by keyword overlap with the
// query. Passages with no overlap are never returned.
func (s *Store) Retrieve(ctx context.Context, query string, limit int) ([]string, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT content FROM passages ORDER BY created_at DESC LIMIT 500
	`)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}
	defer rows.Close()

	type scored struct {
		content string
		score   int
		order   int
	}
	var candidates []scored
	order := 0
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		lower := strings.ToLower(content)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{content: content, score: score, order: order})
		}
		order++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.content)
	}
	return out, nil
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	var terms []string
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if len(f) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}
