package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
)

const iconSize = 32

var (
	iconMu    sync.Mutex
	iconCache = map[string][]byte{}
)

// stateColors maps guard states to the shield fill.
var stateColors = map[string]color.NRGBA{
	"connected":         {30, 200, 90, 255},  // green
	"connect_when_safe": {240, 190, 30, 255}, // amber
	"disconnected":      {220, 55, 55, 255},  // red
}

var unsetColor = color.NRGBA{160, 160, 160, 255}

// GetIcon returns the PNG icon for a guard state.
func GetIcon(state string) []byte {
	iconMu.Lock()
	defer iconMu.Unlock()
	if b, ok := iconCache[state]; ok {
		return b
	}
	c, ok := stateColors[state]
	if !ok {
		c = unsetColor
	}
	b := GenerateShieldIcon(c)
	iconCache[state] = b
	return b
}

// GenerateShieldIcon renders a shield on a transparent background.
func GenerateShieldIcon(fill color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	dark := color.NRGBA{fill.R / 3, fill.G / 3, fill.B / 3, 255}

	const cx = (iconSize - 1) / 2.0
	for y := 0; y < iconSize; y++ {
		hw := shieldHalfWidth(float64(y))
		if hw <= 0 {
			continue
		}
		for x := 0; x < iconSize; x++ {
			d := hw - math.Abs(float64(x)-cx)
			switch {
			case d < 0:
			case d < 1.5 || y <= 3:
				img.SetNRGBA(x, y, dark)
			default:
				img.SetNRGBA(x, y, fill)
			}
		}
	}

	// Keyhole
	for y := 10; y <= 21; y++ {
		for x := 0; x < iconSize; x++ {
			dx := float64(x) - cx
			dy := float64(y) - 13
			if dx*dx+dy*dy <= 9 || (y > 13 && math.Abs(dx) <= 1.5) {
				img.SetNRGBA(x, y, dark)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

// shieldHalfWidth is flat across the top and tapers to a point at the bottom.
func shieldHalfWidth(y float64) float64 {
	switch {
	case y < 2 || y > 30:
		return 0
	case y <= 16:
		return 13
	default:
		t := (y - 16) / 14
		return 13 * math.Sqrt(1-t*t)
	}
}
