package util

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMimeType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n" + "rest-of-image")
	mime, err := ValidateMimeType(bytes.NewReader(png), AllowedMediaMimeTypes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	_, err = ValidateMimeType(bytes.NewReader([]byte("#!/bin/sh\necho hi\n")), AllowedMediaMimeTypes)
	assert.Error(t, err)
}

func TestMediaExtension(t *testing.T) {
	ext, ok := MediaExtension("Diagram.PNG")
	assert.True(t, ok)
	assert.Equal(t, ".png", ext)

	_, ok = MediaExtension("payload.exe")
	assert.False(t, ok)
}
