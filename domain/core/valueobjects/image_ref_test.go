package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageRef(t *testing.T) {
	ref, err := NewImageRef("http://localhost:3000/", "ketchup_1700000000000.jpg")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/images/ketchup_1700000000000.jpg", ref.URL())
	assert.Equal(t, "ketchup_1700000000000.jpg", ref.FileName())
	assert.False(t, ref.IsZero())
}

func TestNewImageRef_RejectsPaths(t *testing.T) {
	for _, name := range []string{"", "../etc/passwd", `a\b.jpg`, "dir/file.png"} {
		_, err := NewImageRef("http://localhost:3000", name)
		assert.Error(t, err, name)
	}
}

func TestParseImageRef(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantErr  bool
		fileName string
	}{
		{name: "absolute URL", url: "https://cdn.example.com/images/a.png", fileName: "a.png"},
		{name: "relative URL", url: "/images/b.webp", fileName: "b.webp"},
		{name: "missing segment", url: "https://cdn.example.com/a.png", wantErr: true},
		{name: "missing file name", url: "https://cdn.example.com/images/", wantErr: true},
		{name: "nested path", url: "https://cdn.example.com/images/x/y.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseImageRef(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.fileName, ref.FileName())
			assert.Equal(t, tt.url, ref.String())
		})
	}
}
