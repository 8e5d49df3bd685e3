// Package audit provides SQLite-backed persistence for tool activity and
// approval decisions. The store doubles as the coordinator's activity sink
// and the orchestrator's approval archive.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS activity_records (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	tool_name       TEXT NOT NULL,
	arguments_json  TEXT NOT NULL DEFAULT '{}',
	result          TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	duration_ms     INTEGER NOT NULL DEFAULT 0,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_conversation ON activity_records(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS approval_history (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	decision        TEXT NOT NULL,
	source          TEXT NOT NULL,
	summary         TEXT NOT NULL DEFAULT '',
	risk_level      TEXT NOT NULL DEFAULT '',
	tool_call_ids   TEXT NOT NULL DEFAULT '',
	metadata_json   TEXT NOT NULL DEFAULT '{}',
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_approval_conversation ON approval_history(conversation_id, created_at);
`

// NewDB opens a SQLite database at the given path with recommended pragmas
// and runs the V1 schema migration.
func NewDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Limit connections to 1 for SQLite (WAL allows concurrent reads but single writer).
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), schemaV1)
	return err
}

// Store persists activity records and archived approvals.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one tool activity record. Satisfies tools.ActivitySink.
func (s *Store) Append(ctx context.Context, record types.ActivityRecord) error {
	arguments, err := json.Marshal(record.Arguments)
	if err != nil {
		arguments = []byte("{}")
	}

	timestamp := record.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	const q = `INSERT INTO activity_records (id, conversation_id, tool_name, arguments_json, result, status, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		uuid.NewString(),
		record.ConversationID,
		record.ToolName,
		string(arguments),
		record.Result,
		record.Status,
		record.DurationMs,
		timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append activity record: %w", err)
	}
	return nil
}

// ListActivity returns a conversation's activity records, oldest first.
func (s *Store) ListActivity(ctx context.Context, conversationID string) ([]types.ActivityRecord, error) {
	const q = `SELECT conversation_id, tool_name, arguments_json, result, status, duration_ms, created_at
FROM activity_records
WHERE conversation_id = ?
ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list activity records: %w", err)
	}
	defer rows.Close()

	var records []types.ActivityRecord
	for rows.Next() {
		var (
			record    types.ActivityRecord
			arguments string
			createdAt int64
		)
		if err := rows.Scan(&record.ConversationID, &record.ToolName, &arguments,
			&record.Result, &record.Status, &record.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity record: %w", err)
		}
		if arguments != "" && arguments != "{}" {
			_ = json.Unmarshal([]byte(arguments), &record.Arguments)
		}
		record.Timestamp = time.UnixMilli(createdAt)
		records = append(records, record)
	}
	return records, rows.Err()
}

// ArchiveApprovals inserts a turn's approval history entries. Entries whose
// IDs were already archived are skipped, so re-archiving after a resumed run
// stays idempotent. Satisfies engine.ApprovalArchive.
func (s *Store) ArchiveApprovals(ctx context.Context, conversationID string, entries []types.ApprovalHistoryEntry) error {
	const q = `INSERT OR IGNORE INTO approval_history (id, conversation_id, decision, source, summary, risk_level, tool_call_ids, metadata_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, entry := range entries {
		id := entry.ID
		if id == "" {
			id = uuid.NewString()
		}
		metadata, err := json.Marshal(entry.Metadata)
		if err != nil {
			metadata = []byte("{}")
		}

		_, err = s.db.ExecContext(ctx, q,
			id,
			conversationID,
			string(entry.Decision),
			string(entry.Source),
			entry.Summary,
			string(entry.RiskLevel),
			strings.Join(entry.ToolCallIDs, ","),
			string(metadata),
			entry.Timestamp.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("archive approval %s: %w", id, err)
		}
	}
	return nil
}

// ListApprovals returns a conversation's archived approvals, oldest first.
func (s *Store) ListApprovals(ctx context.Context, conversationID string) ([]types.ApprovalHistoryEntry, error) {
	const q = `SELECT id, decision, source, summary, risk_level, tool_call_ids, metadata_json, created_at
FROM approval_history
WHERE conversation_id = ?
ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var entries []types.ApprovalHistoryEntry
	for rows.Next() {
		var (
			entry       types.ApprovalHistoryEntry
			decision    string
			source      string
			riskLevel   string
			toolCallIDs string
			metadata    string
			createdAt   int64
		)
		if err := rows.Scan(&entry.ID, &decision, &source, &entry.Summary,
			&riskLevel, &toolCallIDs, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		entry.Decision = types.ApprovalStatus(decision)
		entry.Source = types.ApprovalSource(source)
		entry.RiskLevel = types.Severity(riskLevel)
		if toolCallIDs != "" {
			entry.ToolCallIDs = strings.Split(toolCallIDs, ",")
		}
		if metadata != "" && metadata != "{}" {
			_ = json.Unmarshal([]byte(metadata), &entry.Metadata)
		}
		entry.Timestamp = time.UnixMilli(createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
