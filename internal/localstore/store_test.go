package localstore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSetGetRoundTrip(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)

	in := payload{Name: "Pan Francés", Count: 600}
	require.NoError(t, store.Set("k", in))

	var out payload
	found, err := store.Get("k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestGetMissingKeyReturnsFalseNilError(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)

	var out payload
	found, err := store.Get("never-written", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, out)
}

func TestSetOverwritesPreviousValue(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)

	require.NoError(t, store.Set("k", payload{Name: "v1"}))
	require.NoError(t, store.Set("k", payload{Name: "v2"}))

	var out payload
	_, err = store.Get("k", &out)
	require.NoError(t, err)
	assert.Equal(t, "v2", out.Name)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)

	require.NoError(t, store.Set("k", payload{Name: "v"}))
	require.NoError(t, store.Delete("k"))
	require.NoError(t, store.Delete("k"))

	var out payload
	found, err := store.Get("k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("queue", []payload{{Name: "pending", Count: 3}}))

	// a fresh handle on the same file sees the data, like after a restart
	reopened, err := Open(path)
	require.NoError(t, err)

	var out []payload
	found, err := reopened.Get("queue", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, out, 1)
	assert.Equal(t, "pending", out[0].Name)
}

func TestUpdateAppliesAllWritesAtomically(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)

	err = store.Update(func(tx *Tx) error {
		if err := tx.Set("a", payload{Count: 1}); err != nil {
			return err
		}
		return tx.Set("b", payload{Count: 2})
	})
	require.NoError(t, err)

	var a, b payload
	_, err = store.Get("a", &a)
	require.NoError(t, err)
	_, err = store.Get("b", &b)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Count)
	assert.Equal(t, 2, b.Count)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Set("a", payload{Count: 1}))

	boom := errors.New("boom")
	err = store.Update(func(tx *Tx) error {
		if err := tx.Set("a", payload{Count: 99}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// the failed transaction left the old value in place
	var out payload
	_, err = store.Get("a", &out)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Count)
}

func TestUpdateReadsSeeUncommittedWrites(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)

	err = store.Update(func(tx *Tx) error {
		if err := tx.Set("k", payload{Count: 7}); err != nil {
			return err
		}
		var out payload
		found, err := tx.Get("k", &out)
		if err != nil {
			return err
		}
		assert.True(t, found)
		assert.Equal(t, 7, out.Count)
		return nil
	})
	require.NoError(t, err)
}
