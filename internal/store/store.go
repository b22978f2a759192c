package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"gigchat/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloaded_documents (
	file_name     TEXT PRIMARY KEY,
	downloaded_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_cache (
	user_id         TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	position        INTEGER NOT NULL,
	other_id        TEXT NOT NULL,
	other_name      TEXT NOT NULL,
	other_avatar    TEXT,
	preview_text    TEXT,
	preview_kind    TEXT,
	updated_at      TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, conversation_id)
);

CREATE INDEX IF NOT EXISTS idx_conversation_cache_user
	ON conversation_cache(user_id, position);
`

// Store is the local UI-state store: "document already downloaded" flags and
// a cached copy of the conversation list so the UI has something to paint
// before the first fetch completes. It is a presentation nicety, never a
// source of truth.
type Store struct {
	db        *sql.DB
	encryptor *encryptor
}

// New opens (creating if needed) the sqlite store at dbPath.
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("invalid store path")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := newEncryptor()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Store{db: db, encryptor: enc}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// MarkDownloaded records that the given document file was downloaded once.
func (s *Store) MarkDownloaded(ctx context.Context, fileName string) error {
	query := `
		INSERT INTO downloaded_documents (file_name, downloaded_at)
		VALUES (?, ?)
		ON CONFLICT(file_name) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, fileName, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark document downloaded: %w", err)
	}
	return nil
}

// IsDownloaded reports whether the document was downloaded before.
func (s *Store) IsDownloaded(ctx context.Context, fileName string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM downloaded_documents WHERE file_name = ?`, fileName,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query downloaded flag: %w", err)
	}
	return count > 0, nil
}

// SaveConversations replaces the cached conversation list for userID,
// preserving the server ordering.
func (s *Store) SaveConversations(ctx context.Context, userID string, conversations []models.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversation_cache WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear conversation cache: %w", err)
	}

	query := `
		INSERT INTO conversation_cache (
			user_id, conversation_id, position,
			other_id, other_name, other_avatar,
			preview_text, preview_kind, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	for i, conv := range conversations {
		var previewText, previewKind string
		if conv.LastMessage != nil {
			previewText = conv.LastMessage.Text
			previewKind = string(conv.LastMessage.MediaKind)
		}

		encName, err := s.encryptor.encrypt(conv.OtherParticipant.Username)
		if err != nil {
			return fmt.Errorf("failed to encrypt participant name: %w", err)
		}
		encPreview, err := s.encryptor.encrypt(previewText)
		if err != nil {
			return fmt.Errorf("failed to encrypt preview: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query,
			userID, conv.ID, i,
			conv.OtherParticipant.ID, encName, conv.OtherParticipant.AvatarURL,
			encPreview, previewKind, now,
		); err != nil {
			return fmt.Errorf("failed to cache conversation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation cache: %w", err)
	}
	return nil
}

// LoadConversations returns the cached conversation list for userID in the
// order it was saved. An empty cache yields an empty slice, not an error.
func (s *Store) LoadConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	query := `
		SELECT conversation_id, other_id, other_name, other_avatar,
		       preview_text, preview_kind
		FROM conversation_cache
		WHERE user_id = ?
		ORDER BY position
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation cache: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		var avatar, previewText, previewKind sql.NullString
		if err := rows.Scan(
			&conv.ID, &conv.OtherParticipant.ID, &conv.OtherParticipant.Username,
			&avatar, &previewText, &previewKind,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cached conversation: %w", err)
		}

		conv.OtherParticipant.AvatarURL = avatar.String

		name, err := s.encryptor.decrypt(conv.OtherParticipant.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt participant name: %w", err)
		}
		conv.OtherParticipant.Username = name

		text, err := s.encryptor.decrypt(previewText.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt preview: %w", err)
		}
		if text != "" || previewKind.String != "" {
			conv.LastMessage = &models.MessageSummary{
				Text:      text,
				MediaKind: models.MediaKind(previewKind.String),
			}
		}

		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation cache: %w", err)
	}

	return conversations, nil
}

// CleanupOldRecords drops cache rows older than retentionDays.
func (s *Store) CleanupOldRecords(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_cache WHERE updated_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup conversation cache: %w", err)
	}
	return nil
}
