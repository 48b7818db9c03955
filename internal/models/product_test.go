package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGalleryPathsScan(t *testing.T) {
	tests := []struct {
		name string
		src  interface{}
		want GalleryPaths
	}{
		{"sql null", nil, GalleryPaths{}},
		{"json null", []byte("null"), GalleryPaths{}},
		{"empty array", "[]", GalleryPaths{}},
		{"paths", []byte(`["products/gallery/a.png","products/gallery/b.png"]`),
			GalleryPaths{"products/gallery/a.png", "products/gallery/b.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var g GalleryPaths
			require.NoError(t, g.Scan(tt.src))
			require.NotNil(t, g)
			assert.Equal(t, tt.want, g)

			out, err := json.Marshal(g)
			require.NoError(t, err)
			if len(tt.want) == 0 {
				assert.JSONEq(t, "[]", string(out))
			}
		})
	}
}

func TestGalleryPathsScanRejectsUnknownType(t *testing.T) {
	var g GalleryPaths
	assert.Error(t, g.Scan(42))
}
