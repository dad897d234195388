package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSizeRotation(t *testing.T) {
	dir := t.TempDir()
	w, err := File(FileOptions{Dir: dir, Name: "session", Ext: "log", Rotation: RotationSize, MaxSizeMB: 1})
	require.NoError(t, err)

	_, err = w.Write([]byte("refresh ok\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(filepath.Join(dir, "session.log"))
	require.NoError(t, err)
	assert.Equal(t, "refresh ok\n", string(data))
}

func TestFileUnsupportedRotation(t *testing.T) {
	_, err := File(FileOptions{Dir: t.TempDir(), Name: "x", Ext: "log", Rotation: "weekly"})
	assert.Error(t, err)
}

func TestFilePath(t *testing.T) {
	o := FileOptions{Dir: "logs", Name: "authsession", Ext: "log"}
	assert.Equal(t, filepath.Join("logs", "authsession.log"), o.path(""))
	assert.Equal(t, filepath.Join("logs", "authsession.%Y%m%d.log"), o.path("%Y%m%d"))
}
