package objectstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutGetRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	n, err := store.Put(context.Background(), "versions/v1/source.docx", strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	r, err := store.Get(context.Background(), "versions/v1/source.docx")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestLocalStore_ExistsReflectsState(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ok, err := store.Exists(context.Background(), "missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Put(context.Background(), "present.txt", strings.NewReader("x"))
	require.NoError(t, err)

	ok, err = store.Exists(context.Background(), "present.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalStore_DeleteRemovesObject(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "to-delete.txt", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), "to-delete.txt"))

	ok, err := store.Exists(context.Background(), "to-delete.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStore_DeleteNonexistentIsNotAnError(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, store.Delete(context.Background(), "never-existed.txt"))
}

func TestLocalStore_RejectsPathTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.Get(context.Background(), "../outside.txt")
	assert.Error(t, err)
}

func TestLocalStore_GetMissingKeyErrors(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "does-not-exist.txt")
	assert.Error(t, err)
}
