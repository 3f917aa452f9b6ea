package tesseract

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRegions(t *testing.T) {
	lines := []Line{
		{Rect: image.Rect(10, 5, 200, 30), Text: "QUYẾT ĐỊNH", Confidence: 91},
		{Rect: image.Rectangle{}, Text: "ghost", Confidence: 50},
		{Rect: image.Rect(10, 40, 120, 60), Text: "Số 12/QĐ-HĐQT", Confidence: 140},
	}
	regions := toRegions(lines)
	require.Len(t, regions, 2)

	assert.Equal(t, 0, regions[0].Index)
	assert.Equal(t, "QUYẾT ĐỊNH", regions[0].Text)
	require.NotNil(t, regions[0].Score)
	assert.InDelta(t, 0.91, *regions[0].Score, 1e-9)
	assert.InDelta(t, 190, regions[0].Box.Width(), 1e-9)

	assert.Equal(t, 1, regions[1].Index)
	assert.InDelta(t, 1.0, *regions[1].Score, 1e-9)
}

func TestEncodePNG(t *testing.T) {
	data, err := encodePNG(image.NewGray(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, "vie", DefaultConfig().Language)
}
