// Package history provides SQLite-based persistence for chat messages and
// per-session memory.
// If opening the DB or executing queries fails, the store falls back to in-memory storage.
package history

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/astro-go/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT,
    role TEXT,
    content TEXT,
    created_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
CREATE TABLE IF NOT EXISTS memory (
    session_id TEXT PRIMARY KEY,
    last_context TEXT NOT NULL DEFAULT '',
    last_question TEXT NOT NULL DEFAULT '',
    updated_at DATETIME
);`

// Store keeps messages and session memory. It is safe for concurrent use.
type Store struct {
	db *sql.DB

	mu       sync.Mutex
	messages []Message // in-memory fallback
	memory   map[string]Memory
	nextID   int64
}

// Open opens the SQLite database at path and creates the tables if they don't
// exist. An empty path, or any failure, yields a memory-only store.
func Open(path string) *Store {
	s := &Store{memory: make(map[string]Memory)}
	if path == "" {
		logger.L.Info("history db path empty; using in-memory history")
		return s
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory history", "error", err)
		return s
	}
	if _, err = db.Exec(schema); err != nil {
		logger.L.Warn("sqlite table creation failed; using in-memory history", "error", err)
		_ = db.Close()
		return s
	}
	s.db = db
	logger.L.Info("sqlite history DB initialized", "path", path)
	return s
}

// Persistent reports whether the store is backed by SQLite.
func (s *Store) Persistent() bool { return s.db != nil }

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveMessage persists a message to the SQLite database when available and
// always keeps an in-memory copy as fallback.
func (s *Store) SaveMessage(ctx context.Context, msg Message) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if s.db != nil {
		_, err := s.db.ExecContext(ctx, `INSERT INTO messages (session_id, role, content, created_at) VALUES (?,?,?,?);`,
			msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
		if err != nil {
			logger.L.Error("failed to store message in sqlite; falling back to memory", "error", err)
		}
	}

	s.mu.Lock()
	s.nextID++
	msg.ID = s.nextID
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// Messages returns all messages of a session in chronological order.
func (s *Store) Messages(ctx context.Context, sessionID string) []Message {
	var out []Message
	if s.db != nil {
		rows, err := s.db.QueryContext(ctx, `SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id ASC;`, sessionID)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var m Message
				if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
					logger.L.Warn("sqlite message scan failed; skipping row", "session", sessionID, "error", err)
					continue
				}
				out = append(out, m)
			}
			if err := rows.Err(); err != nil {
				logger.L.Warn("sqlite message iteration failed", "session", sessionID, "error", err)
			}
			return out
		}
		logger.L.Warn("sqlite message query failed; reading memory", "error", err)
	}
	s.mu.Lock()
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	s.mu.Unlock()
	return out
}

// Memory returns what is remembered about a session; zero value if nothing.
func (s *Store) Memory(ctx context.Context, sessionID string) Memory {
	if s.db != nil {
		var m Memory
		err := s.db.QueryRowContext(ctx, `SELECT last_context, last_question FROM memory WHERE session_id = ?;`, sessionID).
			Scan(&m.LastContext, &m.LastQuestion)
		switch {
		case err == nil:
			return m
		case errors.Is(err, sql.ErrNoRows):
			return Memory{}
		default:
			logger.L.Warn("sqlite memory query failed; reading memory", "error", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory[sessionID]
}

// SaveMemory replaces the memory of a session.
func (s *Store) SaveMemory(ctx context.Context, sessionID string, m Memory) {
	if s.db != nil {
		_, err := s.db.ExecContext(ctx, `INSERT INTO memory (session_id, last_context, last_question, updated_at) VALUES (?,?,?,?)
ON CONFLICT(session_id) DO UPDATE SET last_context = excluded.last_context, last_question = excluded.last_question, updated_at = excluded.updated_at;`,
			sessionID, m.LastContext, m.LastQuestion, time.Now().UTC())
		if err != nil {
			logger.L.Error("failed to store memory in sqlite; falling back to memory", "error", err)
		}
	}
	s.mu.Lock()
	s.memory[sessionID] = m
	s.mu.Unlock()
}
