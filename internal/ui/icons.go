package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// Icon dimensions for system tray.
const iconSize = 22

// iconBars is the number of columns in the traffic icon.
const iconBars = 5

// Icon colours.
var (
	colorIdle   = color.RGBA{128, 128, 128, 255} // Gray
	colorActive = color.RGBA{76, 175, 80, 255}   // Green
	colorError  = color.RGBA{229, 57, 53, 255}   // Red
)

// Pre-generated PNG icons for the static states.
var (
	iconIdlePNG  []byte
	iconErrorPNG []byte
)

func init() {
	iconIdlePNG = generateGraphIcon([iconBars]int{}, colorIdle)
	iconErrorPNG = generateErrorIcon(colorError)
}

// iconLevels maps the last iconBars values of series onto bar heights
// 0..iconSize-2, relative to axisMax.
func iconLevels(series []float64, axisMax float64) [iconBars]int {
	var levels [iconBars]int
	series = tail(series, iconBars)
	offset := iconBars - len(series)
	for i, v := range series {
		if axisMax <= 0 || v <= 0 {
			continue
		}
		frac := min(v/axisMax, 1)
		levels[offset+i] = int(frac*float64(iconSize-2) + 0.5)
	}
	return levels
}

// generateGraphIcon draws a small bar chart. Each level is a bar height in
// pixels; a zero level still gets a one pixel baseline.
func generateGraphIcon(levels [iconBars]int, c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))

	const barWidth, gap = 3, 1
	left := (iconSize - iconBars*barWidth - (iconBars-1)*gap) / 2
	bottom := iconSize - 2

	for i, level := range levels {
		level = max(1, min(level, iconSize-2))
		x0 := left + i*(barWidth+gap)
		for y := bottom - level + 1; y <= bottom; y++ {
			for x := x0; x < x0+barWidth; x++ {
				img.Set(x, y, c)
			}
		}
	}

	return encodeIcon(img)
}

// generateErrorIcon draws a cross.
func generateErrorIcon(c color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	for i := 4; i < iconSize-4; i++ {
		for d := 0; d < 2; d++ {
			img.Set(i+d, i, c)
			img.Set(iconSize-1-i-d, i, c)
		}
	}
	return encodeIcon(img)
}

func encodeIcon(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
