package storage

import (
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTestStore(t *testing.T) *RecordStore {
	t.Helper()
	s, err := NewRecordStore(t.TempDir(), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordStore_CreateRead(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.Create("gif_header", []byte("GIF89a"))
	require.NoError(t, err)
	assert.NotEqual(t, ksuid.Nil, id)

	data, err := s.Read("gif_header", id)
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), data)

	t.Run("records are scoped by struct", func(t *testing.T) {
		_, err := s.Read("other", id)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Read("gif_header", ksuid.New())
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("empty struct name", func(t *testing.T) {
		_, err := s.Create("", []byte{1})
		assert.Error(t, err)
	})

	t.Run("empty record", func(t *testing.T) {
		id, err := s.Create("empty", []byte{})
		require.NoError(t, err)
		data, err := s.Read("empty", id)
		require.NoError(t, err)
		assert.Empty(t, data)
	})
}

func TestRecordStore_Update(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.Create("packet", []byte{1, 2})
	require.NoError(t, err)

	require.NoError(t, s.Update("packet", id, []byte{3, 4, 5}))
	data, err := s.Read("packet", id)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4, 5}, data)

	err = s.Update("packet", ksuid.New(), []byte{1})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordStore_Delete(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.Create("packet", []byte{1, 2})
	require.NoError(t, err)

	require.NoError(t, s.Delete("packet", id))
	_, err = s.Read("packet", id)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	err = s.Delete("packet", id)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordStore_List(t *testing.T) {
	s := setupTestStore(t)

	var want []ksuid.KSUID
	for i := 0; i < 5; i++ {
		id, err := s.Create("a", []byte{byte(i)})
		require.NoError(t, err)
		want = append(want, id)
	}
	_, err := s.Create("a/b", []byte{9})
	require.NoError(t, err)
	_, err = s.Create("ab", []byte{9})
	require.NoError(t, err)

	ids, err := s.List("a")
	require.NoError(t, err)
	assert.ElementsMatch(t, want, ids)
	assert.True(t, ksuid.IsSorted(ids))

	ids, err = s.List("missing")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.List("a/b")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestRecordStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewRecordStore(dir, WithSync(true))
	require.NoError(t, err)
	id, err := s.Create("packet", []byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewRecordStore(dir)
	require.NoError(t, err)
	defer s.Close()

	data, err := s.Read("packet", id)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), data)
}

func TestRecordStore_CorruptValue(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.Create("packet", []byte("payload"))
	require.NoError(t, err)

	key := recordKey("packet", id)
	value, closer, err := s.db.Get(key)
	require.NoError(t, err)
	corrupted := append([]byte{}, value...)
	require.NoError(t, closer.Close())
	corrupted[len(corrupted)-1] ^= 0xFF
	require.NoError(t, s.db.Set(key, corrupted, nil))

	_, err = s.Read("packet", id)
	assert.ErrorIs(t, err, ErrCorruptRecord)

	require.NoError(t, s.Update("packet", id, []byte("fixed")))
	data, err := s.Read("packet", id)
	require.NoError(t, err)
	assert.Equal(t, []byte("fixed"), data)
}
