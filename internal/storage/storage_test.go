package storage

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifact")

	store, err := New(dir)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Join(dir, FileName))
	assert.NoError(t, err, "database file was not created")
	assert.Equal(t, filepath.Join(dir, FileName), store.Path())
}

func TestStore_CloseNilDB(t *testing.T) {
	store := &Store{db: nil}
	assert.NoError(t, store.Close())
}

func TestStore_JSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.PutJSON(ModelBucket, "estimator", record{Name: "ridge", Score: 0.42}))
	require.NoError(t, store.PutJSON(MetaBucket, "b", record{}))
	require.NoError(t, store.PutJSON(MetaBucket, "a", record{}))
	require.NoError(t, store.Close())

	ro, err := OpenReadOnly(dir)
	require.NoError(t, err)
	defer ro.Close()

	var got record
	require.NoError(t, ro.GetJSON(ModelBucket, "estimator", &got))
	assert.Equal(t, record{Name: "ridge", Score: 0.42}, got)

	keys, err := ro.Keys(MetaBucket)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	err = ro.GetJSON(ModelBucket, "absent", &got)
	assert.ErrorIs(t, err, ErrNotFound)
	err = ro.GetJSON("nope", "absent", &got)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, ro.PutJSON(MetaBucket, "x", record{}), "read-only store must refuse writes")
}

func TestStore_PutAllIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.PutAll(
		Document{Bucket: ModelBucket, Key: "estimator", Value: record{Name: "ridge"}},
		Document{Bucket: MetaBucket, Key: "metadata", Value: record{Name: "v1"}},
	))

	// bbolt rejects the empty key inside the transaction; the first write
	// must be rolled back with it.
	err = store.PutAll(
		Document{Bucket: ModelBucket, Key: "estimator", Value: record{Name: "tree"}},
		Document{Bucket: MetaBucket, Key: "", Value: record{Name: "v2"}},
	)
	require.Error(t, err)

	// Marshal errors are caught before anything is written.
	err = store.PutAll(
		Document{Bucket: ModelBucket, Key: "estimator", Value: record{Name: "tree"}},
		Document{Bucket: MetaBucket, Key: "metadata", Value: math.NaN()},
	)
	require.Error(t, err)

	var est, meta record
	require.NoError(t, store.GetJSON(ModelBucket, "estimator", &est))
	require.NoError(t, store.GetJSON(MetaBucket, "metadata", &meta))
	assert.Equal(t, "ridge", est.Name)
	assert.Equal(t, "v1", meta.Name)
}

func TestOpenReadOnly_Missing(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
