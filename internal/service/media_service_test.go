package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Hello World", "hello-world"},
		{"punctuation stripped", "Big sale!! 50% off?", "big-sale-50-off"},
		{"empty", "", "media"},
		{"only symbols", "???", "media"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slugify(tt.in))
		})
	}
}

func TestSlugifyCapsLength(t *testing.T) {
	long := slugify("a very long caption that keeps going and going and going and going")
	assert.LessOrEqual(t, len(long), 40)
}

func TestExtFromMime(t *testing.T) {
	assert.Equal(t, "jpg", extFromMime("image/jpeg"))
	assert.Equal(t, "svg", extFromMime("image/svg+xml"))
	assert.Equal(t, "bin", extFromMime("application/octet-stream"))
}
