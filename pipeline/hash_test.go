package pipeline

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashKnownValues(t *testing.T) {
	path := writeVideoFile(t, "abc.mp4", []byte("abc"))
	hash, err := ContentHash(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", hash)

	empty, err := HashReader(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", empty)
}

func TestContentHashIgnoresName(t *testing.T) {
	content := bytes.Repeat([]byte{0x42}, 3*hashChunkSize+17)
	a, err := ContentHash(writeVideoFile(t, "a.mp4", content))
	require.NoError(t, err)
	b, err := ContentHash(writeVideoFile(t, "renamed.webm", content))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	flipped := bytes.Clone(content)
	flipped[len(flipped)-1] ^= 0x01
	c, err := ContentHash(writeVideoFile(t, "a.mp4", flipped))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
	assert.Equal(t, strings.ToLower(c), c)
	assert.Len(t, c, 64)
}

func TestContentHashMissingFile(t *testing.T) {
	_, err := ContentHash(filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, ErrUnreadableVideo)
}
