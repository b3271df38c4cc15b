package mimetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_KnownExtensions(t *testing.T) {
	cases := map[string]string{
		".pdf":  "application/pdf",
		".png":  "image/png",
		".mp3":  "audio/mpeg",
		".mp4":  "video/mp4",
		".zip":  "application/zip",
		".go":   "text/x-go",
		".json": "application/json",
	}
	for ext, want := range cases {
		assert.Equal(t, want, Resolve(ext))
	}
}

func TestResolve_IsCaseInsensitive(t *testing.T) {
	assert.Equal(t, "application/pdf", Resolve(".PDF"))
	assert.Equal(t, "image/png", Resolve(".Png"))
}

func TestResolve_UnknownExtensionFallsBackToOctetStream(t *testing.T) {
	assert.Equal(t, "application/octet-stream", Resolve(".unknownext"))
	assert.Equal(t, "application/octet-stream", Resolve(""))
}
