package utils

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	img.Set(3, 2, color.NRGBA{R: 255, A: 255})

	path := filepath.Join(t.TempDir(), "nested", "frame.png")
	require.NoError(t, SaveImage(img, path))

	loaded, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Bounds().Dx())
	assert.Equal(t, 6, loaded.Bounds().Dy())

	r, _, _, _ := loaded.At(3, 2).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestLoadImageMissing(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load image")
}
