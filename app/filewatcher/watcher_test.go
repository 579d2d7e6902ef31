package filewatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReferenceFilename(t *testing.T) {
	tests := []struct {
		filename       string
		wantIdentifier string
		wantName       string
		wantOK         bool
	}{
		{"A.png", "A", "", true},
		{"a.jpg", "A", "", true},
		{"B_女主角.png", "B", "女主角", true},
		{"C_long_name.webp", "C", "long_name", true},
		{"D.jpeg", "D", "", true},
		{"E.png", "", "", false},
		{"hero.png", "", "", false},
		{".png", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			identifier, name, ok := ParseReferenceFilename(tt.filename)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantIdentifier, identifier)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, isImageFile("a.png"))
	assert.True(t, isImageFile("dir/b.JPG"))
	assert.True(t, isImageFile("c.webp"))
	assert.False(t, isImageFile("d.txt"))
	assert.False(t, isImageFile("e"))
}
