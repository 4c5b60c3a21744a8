package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"
)

// Export searches audit entries matching the filter and renders them in the
// requested format
func (r *Recorder) Export(ctx context.Context, filter Filter, format Format) ([]byte, error) {
	entries, err := r.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return exportJSON(entries)
	case FormatCSV:
		return exportCSV(entries)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func exportJSON(entries []*Entry) ([]byte, error) {
	return json.MarshalIndent(entries, "", "  ")
}

func exportCSV(entries []*Entry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{
		"ID",
		"EntityType",
		"EntityID",
		"Action",
		"UserID",
		"OldValues",
		"NewValues",
		"IPAddress",
		"UserAgent",
		"CreatedAt",
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		oldValues, err := formatValues(entry.OldValues)
		if err != nil {
			return nil, err
		}
		newValues, err := formatValues(entry.NewValues)
		if err != nil {
			return nil, err
		}

		row := []string{
			entry.ID,
			entry.EntityType,
			entry.EntityID,
			entry.Action,
			formatStringPtr(entry.UserID),
			oldValues,
			newValues,
			entry.IPAddress,
			entry.UserAgent,
			entry.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func formatValues(values map[string]interface{}) (string, error) {
	if values == nil {
		return "", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to marshal values: %w", err)
	}
	return string(data), nil
}

func formatStringPtr(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
