// Package journal records every radio command exchange in SQLite so
// operators can see what was sent to which radio and what came back.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Entry is one journalled command exchange.
type Entry struct {
	ID        string        `json:"id"`
	Radio     string        `json:"radio"`
	Command   string        `json:"command"`
	Verb      string        `json:"verb"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Response  []string      `json:"response,omitempty"`
	Duration  time.Duration `json:"duration"`
	RequestID string        `json:"request_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Radio      string
	Verb       string
	FailedOnly bool
	Limit      int // default 50, max 500
	Offset     int
}

// ListResult is one page of entries, most recent first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository stores journal entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores entries in the command_journal table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an opened, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts e. ID and CreatedAt are generated when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "cmd-" + uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	response, err := json.Marshal(e.Response)
	if err != nil {
		return fmt.Errorf("marshalling response lines: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO command_journal (id, radio, command, verb, success, error, response, duration_us, request_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Radio, e.Command, e.Verb, boolToInt(e.Success), e.Error,
		string(response), e.Duration.Microseconds(), e.RequestID, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// List returns entries matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Radio != "" {
		conditions = append(conditions, "radio = ?")
		args = append(args, filter.Radio)
	}
	if filter.Verb != "" {
		conditions = append(conditions, "verb = ?")
		args = append(args, filter.Verb)
	}
	if filter.FailedOnly {
		conditions = append(conditions, "success = 0")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM command_journal " + where //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}

	query := "SELECT id, radio, command, verb, success, error, response, duration_us, request_id, created_at FROM command_journal " + //nolint:gosec // as above
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var success int
		var response string
		var durationUS, createdMS int64
		if err := rows.Scan(&e.ID, &e.Radio, &e.Command, &e.Verb, &success, &e.Error,
			&response, &durationUS, &e.RequestID, &createdMS); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		e.Success = success != 0
		e.Duration = time.Duration(durationUS) * time.Microsecond
		e.CreatedAt = time.UnixMilli(createdMS).UTC()
		if response != "" && response != "null" {
			if err := json.Unmarshal([]byte(response), &e.Response); err != nil {
				return nil, fmt.Errorf("decoding response lines of %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
