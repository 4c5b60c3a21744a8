package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bcforms/formgate/pkg/contextkeys"
	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/tokens"
)

// Sink accepts audit entries. Implementations must never fail the caller.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// Recorder appends audit entries to the audit_logs table.
//
// Writes are best-effort: a failed insert is logged and counted but never
// surfaces to the caller, so audit problems cannot fail the primary
// operation. The recorder runs on its own database handle so its unit of
// work is independent of any transaction the caller holds.
type Recorder struct {
	db      *sql.DB
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRecorder creates a new audit recorder. The metrics argument may be nil.
func NewRecorder(db *sql.DB, logger *observability.Logger, metrics *observability.Metrics) (*Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Recorder{db: db, logger: logger, metrics: metrics}, nil
}

// Record appends one audit entry.
//
// If the entry names an acting user that does not exist in the store, the
// call is a silent no-op rather than fabricating an orphaned row. Entries
// with no acting user (anonymous actions) are recorded as-is. Any failure
// is swallowed after logging.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.UserID == nil {
		if principal, ok := ctx.Value(contextkeys.PrincipalKey).(*tokens.Principal); ok && principal != nil {
			subject := principal.Subject
			entry.UserID = &subject
		}
	}

	if entry.UserID != nil {
		exists, err := r.userExists(ctx, *entry.UserID)
		if err != nil {
			r.fail(entry, err)
			return
		}
		if !exists {
			return
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	oldValues, newValues, err := marshalValues(entry)
	if err != nil {
		r.fail(entry, err)
		return
	}

	query := `
		INSERT INTO audit_logs (id, entity_type, entity_id, action, user_id, old_values, new_values, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		entry.UserID,
		oldValues,
		newValues,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	)
	if err != nil {
		r.fail(entry, err)
	}
}

func (r *Recorder) userExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)`,
		userID,
	).Scan(&exists)
	return exists, err
}

func (r *Recorder) fail(entry Entry, err error) {
	r.logger.WithError(err).WithFields(map[string]interface{}{
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
		"action":      entry.Action,
	}).Error("failed to write audit entry")

	if r.metrics != nil {
		r.metrics.AuditWriteFailuresTotal.Inc()
	}
}

// marshalValues serializes the old/new value snapshots to JSON text,
// preserving NULL for absent snapshots.
func marshalValues(entry Entry) (interface{}, interface{}, error) {
	var oldValues, newValues interface{}

	if entry.OldValues != nil {
		data, err := json.Marshal(entry.OldValues)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal old values: %w", err)
		}
		oldValues = string(data)
	}

	if entry.NewValues != nil {
		data, err := json.Marshal(entry.NewValues)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal new values: %w", err)
		}
		newValues = string(data)
	}

	return oldValues, newValues, nil
}
