package minio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectStore_URL(t *testing.T) {
	t.Parallel()

	s := &ObjectStore{bucket: "vidtube", publicURL: "http://localhost:9000"}

	tests := []struct {
		name     string
		expected string
	}{
		{name: "clip.mp4", expected: "http://localhost:9000/vidtube/clip.mp4"},
		{name: "my clip.mp4", expected: "http://localhost:9000/vidtube/my%20clip.mp4"},
		{name: "profiles/a.png", expected: "http://localhost:9000/vidtube/profiles/a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, s.URL(tt.name))
		})
	}
}
