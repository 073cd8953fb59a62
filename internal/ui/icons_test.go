package ui

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateGraphIcon_ReturnsValidPNG(t *testing.T) {
	tests := []struct {
		name   string
		levels [iconBars]int
	}{
		{"flat", [iconBars]int{}},
		{"ramp", [iconBars]int{2, 5, 10, 15, 20}},
		{"overflow", [iconBars]int{100, -3, 0, 1, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := generateGraphIcon(tt.levels, colorActive)

			require.NotEmpty(t, data, "icon data should not be empty")

			img, err := png.Decode(bytes.NewReader(data))
			require.NoError(t, err, "should be valid PNG")

			bounds := img.Bounds()
			assert.Equal(t, iconSize, bounds.Dx(), "width should match iconSize")
			assert.Equal(t, iconSize, bounds.Dy(), "height should match iconSize")
		})
	}
}

func TestPreGeneratedIcons_AreValid(t *testing.T) {
	icons := map[string][]byte{
		"idle":  iconIdlePNG,
		"error": iconErrorPNG,
	}

	for name, data := range icons {
		t.Run(name, func(t *testing.T) {
			require.NotEmpty(t, data, "icon should not be empty")

			_, err := png.Decode(bytes.NewReader(data))
			require.NoError(t, err, "should be valid PNG")
		})
	}
}

func TestIconLevels(t *testing.T) {
	tests := []struct {
		name     string
		series   []float64
		axisMax  float64
		expected [iconBars]int
	}{
		{"empty", nil, 100, [iconBars]int{}},
		{"short series is right aligned", []float64{50, 100}, 100, [iconBars]int{0, 0, 0, 10, 20}},
		{"only the tail counts", []float64{100, 0, 0, 0, 0, 0, 100}, 100, [iconBars]int{0, 0, 0, 0, 20}},
		{"clamped above axis", []float64{500}, 100, [iconBars]int{0, 0, 0, 0, 20}},
		{"zero axis", []float64{5}, 0, [iconBars]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, iconLevels(tt.series, tt.axisMax))
		})
	}
}
