package artifacts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureOrderIndependent(t *testing.T) {
	a := Artifact{ID: "1", Name: "lease.pdf", MediaType: "application/pdf", Size: 2048, Pages: 3}
	b := Artifact{ID: "2", Name: "passport.jpg", MediaType: "image/jpeg", Size: 512}

	assert.Equal(t, Signature([]Artifact{a, b}), Signature([]Artifact{b, a}))
	assert.NotEqual(t, Signature([]Artifact{a}), Signature([]Artifact{a, b}))
	assert.Empty(t, Signature(nil))

	changed := a
	changed.Pages = 4
	assert.NotEqual(t, Signature([]Artifact{a}), Signature([]Artifact{changed}))
}

func testStore(t *testing.T, store SignatureStore) {
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "s1", "abc"))
	require.NoError(t, store.Put(ctx, "s1", "def"))
	require.NoError(t, store.Put(ctx, "s2", "xyz"))

	sig, ok, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "def", sig)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "signatures.db")
	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	testStore(t, store)
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	sig, ok, err := reopened.Get(context.Background(), "s2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "xyz", sig)
}
