package sql

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/bcnelson/sandbox-console/internal/storage"
	"github.com/bcnelson/sandbox-console/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dbSeq atomic.Int64

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:sandbox_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	s, err := New("sqlite3", dsn)
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage { return newTestStore(t) })
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New("postgres", "postgres://localhost")
	assert.Error(t, err)
}

func TestCascadeTableCoversCascades(t *testing.T) {
	for _, kind := range storage.Cascades {
		_, ok := cascadeTables[kind]
		assert.True(t, ok, "no table registered for %s", kind)
	}
}

func TestReplaceLogsRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defer s.Close()

	require.NoError(t, s.CreateEnvironment(ctx, &domain.Environment{ID: "a", Status: domain.EnvironmentActive}))
	require.NoError(t, s.AppendLog(ctx, &domain.LogEntry{ID: "keep", EnvironmentID: "a", Level: domain.LogInfo, Source: domain.SourceAPI}))

	// Duplicate ids inside the batch fail the whole replacement.
	err := s.ReplaceLogs(ctx, "a", []*domain.LogEntry{
		{ID: "dup", EnvironmentID: "a", Level: domain.LogInfo, Source: domain.SourceAPI},
		{ID: "dup", EnvironmentID: "a", Level: domain.LogInfo, Source: domain.SourceAPI},
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	logs, err := s.ListLogs(ctx, "a", domain.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "keep", logs[0].ID)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(fmt.Errorf("UNIQUE constraint failed: api_keys.id")))
	assert.False(t, isUniqueViolation(fmt.Errorf("no such table")))
}
