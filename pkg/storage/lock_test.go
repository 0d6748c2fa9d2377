package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	lock, err := LockDataDir(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, LockFileName), lock.Path())

	_, err = LockDataDir(dir)
	assert.ErrorIs(t, err, ErrDataDirLocked)

	require.NoError(t, lock.Unlock())

	again, err := LockDataDir(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}
