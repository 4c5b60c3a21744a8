package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_JSON(t *testing.T) {
	db := setupTestDB(t)
	recorder := newTestRecorder(t, db)
	ctx := context.Background()

	seedEntries(t, recorder)

	data, err := recorder.Export(ctx, Filter{}, FormatJSON)
	require.NoError(t, err)

	var entries []*Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, 3)
}

func TestExport_CSV(t *testing.T) {
	db := setupTestDB(t)
	recorder := newTestRecorder(t, db)
	ctx := context.Background()

	seedEntries(t, recorder)

	data, err := recorder.Export(ctx, Filter{}, FormatCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)

	// Header plus one row per entry.
	require.Len(t, records, 4)
	assert.Equal(t, "EntityType", records[0][1])
}

func TestExport_UnsupportedFormat(t *testing.T) {
	db := setupTestDB(t)
	recorder := newTestRecorder(t, db)

	_, err := recorder.Export(context.Background(), Filter{}, Format("xml"))
	assert.Error(t, err)
}
