package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Search retrieves audit entries matching the filter, newest first
func (r *Recorder) Search(ctx context.Context, filter Filter) ([]*Entry, error) {
	query := `
		SELECT id, entity_type, entity_id, action, user_id, old_values, new_values, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE deleted_at IS NULL
	`

	args := []interface{}{}
	argCount := 1

	if filter.EntityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", argCount)
		args = append(args, filter.EntityType)
		argCount++
	}

	if filter.EntityID != "" {
		query += fmt.Sprintf(" AND entity_id = $%d", argCount)
		args = append(args, filter.EntityID)
		argCount++
	}

	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argCount)
		args = append(args, filter.Action)
		argCount++
	}

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, filter.UserID)
		argCount++
	}

	if filter.StartTime != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filter.StartTime)
		argCount++
	}

	if filter.EndTime != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *filter.EndTime)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
		argCount++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var entry Entry
	var userID sql.NullString
	var oldValues, newValues sql.NullString
	var ipAddress, userAgent sql.NullString

	err := rows.Scan(
		&entry.ID,
		&entry.EntityType,
		&entry.EntityID,
		&entry.Action,
		&userID,
		&oldValues,
		&newValues,
		&ipAddress,
		&userAgent,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		id := userID.String
		entry.UserID = &id
	}
	entry.IPAddress = ipAddress.String
	entry.UserAgent = userAgent.String

	if oldValues.Valid && oldValues.String != "" {
		if err := json.Unmarshal([]byte(oldValues.String), &entry.OldValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal old values: %w", err)
		}
	}
	if newValues.Valid && newValues.String != "" {
		if err := json.Unmarshal([]byte(newValues.String), &entry.NewValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal new values: %w", err)
		}
	}

	return &entry, nil
}
