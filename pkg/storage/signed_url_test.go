package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expires, err := signer.Generate("mat-1", "materials/t1/123.pdf")
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	recordID, relPath, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "mat-1", recordID)
	assert.Equal(t, "materials/t1/123.pdf", relPath)
}

func TestSignedURLTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("mat-1", "materials/t1/123.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[3] = "deadbeef"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	assert.Error(t, err)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Nanosecond)

	token, _, err := signer.Generate("mat-1", "materials/t1/123.pdf")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, _, _, err = signer.Parse(token, false)
	assert.Error(t, err)

	_, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "materials/t1/123.pdf", relPath)
}

func TestObjectPathExtension(t *testing.T) {
	path := ObjectPath("assignments", "a-1", "notes.PDF")
	assert.True(t, strings.HasPrefix(path, "assignments/a-1/"))
	assert.True(t, strings.HasSuffix(path, ".PDF"))

	fallback := ObjectPath("materials", "m-1", "noext")
	assert.True(t, strings.HasSuffix(fallback, ".bin"))
}
