package driver

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStoreThenLookupHits(t *testing.T) {
	root := t.TempDir()
	c := NewCache(root, "exec")

	files := map[string][]byte{"main.k": []byte("a = 1\n")}
	fp := Fingerprint(files)

	_, hit := c.Lookup("main", fp)
	assert.False(t, hit, "no artifact stored yet")

	artifact := []byte(`{"a":1}`)
	path, err := c.Store("main", fp, artifact)
	require.NoError(t, err)

	got, hit := c.Lookup("main", fp)
	require.True(t, hit)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, artifact, data)
}

func TestCacheMissOnFingerprintChange(t *testing.T) {
	root := t.TempDir()
	c := NewCache(root, "exec")

	fp1 := Fingerprint(map[string][]byte{"main.k": []byte("a = 1\n")})
	_, err := c.Store("main", fp1, []byte("v1"))
	require.NoError(t, err)

	fp2 := Fingerprint(map[string][]byte{"main.k": []byte("a = 2\n")})
	require.NotEqual(t, fp1, fp2)

	_, hit := c.Lookup("main", fp2)
	assert.False(t, hit, "changed source must not hit the stale fingerprint's cache entry")
}

func TestFingerprintOrderIndependent(t *testing.T) {
	files := map[string][]byte{
		"a.k": []byte("a = 1\n"),
		"b.k": []byte("b = 2\n"),
	}
	fp1 := Fingerprint(files)
	fp2 := Fingerprint(files)
	assert.Equal(t, fp1, fp2, "fingerprint must be deterministic across calls on identical input")
}
