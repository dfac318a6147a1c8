package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	local, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	stores := map[string]Store{
		"local":  local,
		"memory": NewMemoryStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Get(ctx, "funding_date_filter_range")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, "funding_date_filter_range", []byte(`{"from":"a"}`)))
			got, err := store.Get(ctx, "funding_date_filter_range")
			require.NoError(t, err)
			assert.Equal(t, `{"from":"a"}`, string(got))

			require.NoError(t, store.Set(ctx, "funding_date_filter_range", []byte(`{"from":"b"}`)))
			got, err = store.Get(ctx, "funding_date_filter_range")
			require.NoError(t, err)
			assert.Equal(t, `{"from":"b"}`, string(got))

			require.NoError(t, store.Delete(ctx, "funding_date_filter_range"))
			require.NoError(t, store.Delete(ctx, "funding_date_filter_range"))
			_, err = store.Get(ctx, "funding_date_filter_range")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "__etc_passwd", sanitizeKey("../etc/passwd"))
	assert.Equal(t, "a_b", sanitizeKey("a:b"))
}

func TestNew(t *testing.T) {
	s, err := New(&Config{Type: StoreTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(&Config{Type: StoreTypeLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	_, err = New(&Config{Type: StoreTypeLocal})
	assert.Error(t, err)
}
