// Package chatlog persists chat sessions and their messages so the
// interactive CLI keeps history across runs.
package chatlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docqa/docqa/internal/db"
	"github.com/docqa/docqa/internal/rag"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Session is one chat conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn in a session. Assistant messages carry the
// sources and confidence of the answer they record.
type Message struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"session_id"`
	Role       Role         `json:"role"`
	Content    string       `json:"content"`
	Sources    []rag.Source `json:"sources,omitempty"`
	Confidence float64      `json:"confidence"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Store provides CRUD operations for chat history.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateSession starts a new session with the given title.
func (s *Store) CreateSession(ctx context.Context, title string) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		session.ID, session.Title,
		session.CreatedAt.Format(time.DateTime), session.UpdatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting chat session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions, most recently active first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at, updated_at
		FROM chat_sessions ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			session              Session
			createdAt, updatedAt string
		)
		if err := rows.Scan(&session.ID, &session.Title, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat session: %w", err)
		}
		session.CreatedAt = parseTimestamp(createdAt)
		session.UpdatedAt = parseTimestamp(updatedAt)
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and, via cascade, its messages.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting chat session: %w", err)
	}
	return nil
}

// AppendMessage records one turn and touches the session's updated_at.
// The message ID is generated when empty.
func (s *Store) AppendMessage(ctx context.Context, msg Message) (*Message, error) {
	if msg.SessionID == "" {
		return nil, fmt.Errorf("message has no session")
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	sources, err := json.Marshal(msg.Sources)
	if err != nil {
		return nil, fmt.Errorf("marshalling sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, sources, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, string(msg.Role), msg.Content,
		string(sources), msg.Confidence, msg.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting chat message: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt.Format(time.DateTime), msg.SessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("touching chat session: %w", err)
	}
	return &msg, nil
}

// Messages returns a session's messages in conversation order.
// Timestamps have second resolution, so insertion order breaks ties.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, sources, confidence, created_at
		FROM chat_messages WHERE session_id = ?
		ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying chat messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(sc scanner) (*Message, error) {
	var (
		msg         Message
		role        string
		sourcesJSON string
		createdAt   string
	)
	err := sc.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &sourcesJSON, &msg.Confidence, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scanning chat message: %w", err)
	}

	msg.Role = Role(role)
	msg.CreatedAt = parseTimestamp(createdAt)
	if err := json.Unmarshal([]byte(sourcesJSON), &msg.Sources); err != nil {
		msg.Sources = nil
	}
	return &msg, nil
}

func parseTimestamp(value string) time.Time {
	if t, err := time.Parse(time.DateTime, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

// TitleFromQuestion derives a session title from its opening question.
func TitleFromQuestion(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	runes := []rune(title)
	if len(runes) > 60 {
		return string(runes[:57]) + "..."
	}
	if title == "" {
		return "Untitled session"
	}
	return title
}
