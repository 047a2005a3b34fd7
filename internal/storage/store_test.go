package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permock/internal/logger"
	"permock/pkg/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.sqlite3")
	s, err := Open(dsn, "permock_", logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordObservation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.RecordObservation(ctx, domain.Observation{
		Trace: "t-1",
		URL:   "https://api.factorialhr.com/graphql",
		Class: domain.ClassUnknown,
		Body:  `{"x":1}`,
	})
	require.NoError(t, err)

	var rows []Observation
	require.NoError(t, s.db.WithContext(ctx).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "t-1", rows[0].Trace)
	assert.Equal(t, "unknown", rows[0].Class)
	assert.Equal(t, `{"x":1}`, rows[0].Body)
}

func TestRecordChanges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	changes := []domain.FieldChange{
		{Path: "0.permissions.attendance.approve", Before: "false", After: "true"},
		{Path: "0.permissions.payroll.access", Before: "false", After: "true"},
	}
	require.NoError(t, s.RecordChanges(ctx, "t-2", "https://api.factorialhr.com/companies", changes))
	require.NoError(t, s.RecordChanges(ctx, "t-2", "https://api.factorialhr.com/companies", nil))

	var rows []Mutation
	require.NoError(t, s.db.WithContext(ctx).Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "0.permissions.attendance.approve", rows[0].Path)
	assert.Equal(t, "false", rows[0].Before)
	assert.Equal(t, "true", rows[0].After)
}
