package journal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: "memory", open: func(t *testing.T) Store { return NewMemoryStore() }},
		{name: "sqlite", open: func(t *testing.T) Store { return openSQLite(t, DriverModernc, ":memory:") }},
		{name: "sqlite3", open: func(t *testing.T) Store { return openSQLite(t, DriverMattn, ":memory:") }},
	}
}

func openSQLite(t *testing.T, driver, path string) Store {
	t.Helper()
	s, err := NewSQLiteStore(SQLiteConfig{Driver: driver, Path: path})
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED") {
		t.Skipf("driver %s unavailable: %v", driver, err)
	}
	require.NoError(t, err, "NewSQLiteStore(%s)", driver)
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id string, offset time.Duration, code int) Record {
	return Record{
		ID:        id,
		Timestamp: base.Add(offset),
		Message:   "Yêu cầu không đúng, mời bạn thử lại!",
		HTTPCode:  403,
		Code:      code,
		Cause:     "api key not recognized",
		URI:       "/orders?page=" + id,
		Tags:      map[string]string{"x-gapo-role": "service"},
	}
}

func TestStore_AppendAndList(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t)
			ctx := context.Background()

			for i, id := range []string{"a", "b", "c"} {
				require.NoError(t, s.Append(ctx, record(id, time.Duration(i)*time.Minute, 901)), "Append(%s)", id)
			}

			got, err := s.List(ctx, Filter{})
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"c", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID}, "newest first")
			assert.True(t, got[0].Timestamp.Equal(base.Add(2*time.Minute)), "Timestamp = %v", got[0].Timestamp)
			assert.Equal(t, "service", got[0].Tags["x-gapo-role"])
			assert.Equal(t, "/orders?page=c", got[0].URI)
		})
	}
}

func TestStore_AppendDuplicateIgnored(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t)
			ctx := context.Background()

			r := record("dup", 0, 901)
			require.NoError(t, s.Append(ctx, r))
			r.Message = "changed"
			require.NoError(t, s.Append(ctx, r))

			n, err := s.Count(ctx, Filter{})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestStore_Filter(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t)
			ctx := context.Background()

			for i := 0; i < 10; i++ {
				code := 901
				if i%2 == 0 {
					code = 1000
				}
				require.NoError(t, s.Append(ctx, record(fmt.Sprint(i), time.Duration(i)*time.Hour, code)))
			}

			tests := []struct {
				name   string
				filter Filter
				want   int
			}{
				{name: "all", filter: Filter{}, want: 10},
				{name: "by code", filter: Filter{Code: 901}, want: 5},
				{name: "since", filter: Filter{Since: base.Add(5 * time.Hour)}, want: 5},
				{name: "until", filter: Filter{Until: base.Add(3 * time.Hour)}, want: 3},
				{name: "window and code", filter: Filter{Since: base.Add(2 * time.Hour), Until: base.Add(6 * time.Hour), Code: 1000}, want: 2},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					n, err := s.Count(ctx, tt.filter)
					require.NoError(t, err)
					assert.Equal(t, int64(tt.want), n)

					got, err := s.List(ctx, tt.filter)
					require.NoError(t, err)
					assert.Len(t, got, tt.want)
				})
			}

			got, err := s.List(ctx, Filter{Limit: 3})
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "9", got[0].ID)
		})
	}
}

func TestStore_Prune(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t)
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				require.NoError(t, s.Append(ctx, record(fmt.Sprint(i), time.Duration(i)*24*time.Hour, 901)))
			}

			deleted, err := s.Prune(ctx, base.Add(48*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(2), deleted)

			n, err := s.Count(ctx, Filter{})
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)
		})
	}
}

func TestSQLiteStore_FileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(SQLiteConfig{Path: path, WALMode: true})
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, record("persisted", 0, 901)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(SQLiteConfig{Path: path, WALMode: true})
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNewSQLiteStore_Invalid(t *testing.T) {
	_, err := NewSQLiteStore(SQLiteConfig{Driver: "postgres", Path: "x"})
	assert.Error(t, err, "unsupported driver")

	_, err = NewSQLiteStore(SQLiteConfig{})
	assert.Error(t, err, "empty path")
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StorageError{Backend: "sqlite", Operation: "append", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "append")
}
