package callbacks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/botkit/internal/db"
)

const defaultPollInterval = 100 * time.Millisecond

// storedOutcome is the payload column of a resolved row.
type storedOutcome struct {
	Shutdown bool      `json:"shutdown,omitempty"`
	Callback *Callback `json:"callback,omitempty"`
}

// SQLStore keeps slots in SQLite so several processes sharing one database
// file can resolve each other's callbacks. Rows are owned by the instance
// that created them; Shutdown only fails its own rows. A conditional update
// guarantees a single resolution per sync id.
type SQLStore struct {
	db           *db.DB
	owner        string
	pollInterval time.Duration
	closed       atomic.Bool
}

// NewSQLStore creates a store on database. A non-positive pollInterval
// selects the default.
func NewSQLStore(database *db.DB, pollInterval time.Duration) *SQLStore {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &SQLStore{
		db:           database,
		owner:        uuid.NewString(),
		pollInterval: pollInterval,
	}
}

// Owner identifies the rows created by this instance.
func (s *SQLStore) Owner() string { return s.owner }

func (s *SQLStore) Create(ctx context.Context, syncID uuid.UUID) error {
	if s.closed.Load() {
		return &BotShuttingDownError{SyncID: syncID}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO method_callbacks (sync_id, owner) VALUES (?, ?)`,
		syncID.String(), s.owner,
	)
	if err != nil {
		return fmt.Errorf("inserting callback %s: %w", syncID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &CallbackExistsError{SyncID: syncID}
	}
	return nil
}

func (s *SQLStore) Resolve(ctx context.Context, cb Callback) error {
	payload, err := json.Marshal(storedOutcome{Callback: &cb})
	if err != nil {
		return fmt.Errorf("marshalling callback: %w", err)
	}
	return s.resolve(ctx, cb.SyncID, payload, `sync_id = ?`, cb.SyncID.String())
}

func (s *SQLStore) resolve(ctx context.Context, syncID uuid.UUID, payload []byte, where string, args ...any) error {
	query := `UPDATE method_callbacks
		SET state = 'resolved', payload = ?, resolved_at = datetime('now')
		WHERE state = 'pending' AND ` + where
	res, err := s.db.ExecContext(ctx, query, append([]any{string(payload)}, args...)...)
	if err != nil {
		return fmt.Errorf("resolving callback: %w", err)
	}
	if syncID != uuid.Nil {
		if n, _ := res.RowsAffected(); n == 0 {
			return &CallbackNotFoundError{SyncID: syncID}
		}
	}
	return nil
}

func (s *SQLStore) Wait(ctx context.Context, syncID uuid.UUID, timeout time.Duration) (Callback, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		out, found, err := s.load(ctx, syncID)
		if err != nil {
			if ctx.Err() != nil {
				_, _ = s.delete(context.WithoutCancel(ctx), syncID)
				return Callback{}, ctx.Err()
			}
			return Callback{}, err
		}
		if !found {
			return Callback{}, &CallbackNotFoundError{SyncID: syncID}
		}
		if out != nil {
			claimed, err := s.delete(context.WithoutCancel(ctx), syncID)
			if err != nil {
				return Callback{}, err
			}
			if !claimed {
				return Callback{}, &CallbackNotFoundError{SyncID: syncID}
			}
			if out.Shutdown {
				return Callback{}, &BotShuttingDownError{SyncID: syncID}
			}
			return *out.Callback, nil
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			if _, err := s.delete(context.WithoutCancel(ctx), syncID); err != nil {
				return Callback{}, err
			}
			return Callback{}, &CallbackNotReceivedError{SyncID: syncID, Timeout: timeout}
		case <-ctx.Done():
			_, _ = s.delete(context.WithoutCancel(ctx), syncID)
			return Callback{}, ctx.Err()
		}
	}
}

func (s *SQLStore) Pop(ctx context.Context, syncID uuid.UUID) (Callback, bool, error) {
	out, found, err := s.load(ctx, syncID)
	if err != nil {
		return Callback{}, false, err
	}
	if !found {
		return Callback{}, false, &CallbackNotFoundError{SyncID: syncID}
	}
	claimed, err := s.delete(ctx, syncID)
	if err != nil {
		return Callback{}, false, err
	}
	if !claimed {
		return Callback{}, false, &CallbackNotFoundError{SyncID: syncID}
	}
	if out == nil || out.Shutdown {
		return Callback{}, false, nil
	}
	return *out.Callback, true, nil
}

func (s *SQLStore) Shutdown(ctx context.Context) error {
	s.closed.Store(true)
	payload, err := json.Marshal(storedOutcome{Shutdown: true})
	if err != nil {
		return fmt.Errorf("marshalling shutdown marker: %w", err)
	}
	return s.resolve(ctx, uuid.Nil, payload, `owner = ?`, s.owner)
}

func (s *SQLStore) Pending(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sync_id FROM method_callbacks WHERE owner = ? ORDER BY created_at`, s.owner)
	if err != nil {
		return nil, fmt.Errorf("listing callbacks: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning callback: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing sync_id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// load returns the decoded outcome of a resolved row, nil for a pending row,
// and found=false when the row does not exist.
func (s *SQLStore) load(ctx context.Context, syncID uuid.UUID) (*storedOutcome, bool, error) {
	var state string
	var payload sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT state, payload FROM method_callbacks WHERE sync_id = ?`, syncID.String(),
	).Scan(&state, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading callback %s: %w", syncID, err)
	}
	if state != "resolved" || !payload.Valid {
		return nil, true, nil
	}

	var out storedOutcome
	if err := json.Unmarshal([]byte(payload.String), &out); err != nil {
		return nil, true, fmt.Errorf("decoding stored callback %s: %w", syncID, err)
	}
	if !out.Shutdown && out.Callback == nil {
		return nil, true, fmt.Errorf("stored callback %s has no payload", syncID)
	}
	return &out, true, nil
}

// delete removes the row and reports whether this call was the one that did.
func (s *SQLStore) delete(ctx context.Context, syncID uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM method_callbacks WHERE sync_id = ?`, syncID.String())
	if err != nil {
		return false, fmt.Errorf("deleting callback %s: %w", syncID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
