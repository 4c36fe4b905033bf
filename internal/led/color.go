// Package led maps weather reports onto an ordered LED color buffer and manages
// that buffer's brightness and lightning-flash state.
package led

import "fmt"

// Color is an RGB triple.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGB returns a Color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Scale returns the color with each channel scaled by brightness/255,
// rounded to the nearest integer.
func (c Color) Scale(brightness uint8) Color {
	return Color{
		R: scaleChannel(c.R, brightness),
		G: scaleChannel(c.G, brightness),
		B: scaleChannel(c.B, brightness),
	}
}

// v*b/255 never lands exactly on .5, so adding 127 before dividing rounds correctly.
func scaleChannel(v, brightness uint8) uint8 {
	return uint8((uint16(v)*uint16(brightness) + 127) / 255)
}

// Flight category colors.
var (
	ColorVFR       = RGB(0, 255, 0)
	ColorMVFR      = RGB(0, 0, 255)
	ColorIFR       = RGB(255, 0, 0)
	ColorLIFR      = RGB(255, 0, 255)
	ColorWind      = RGB(255, 255, 0)
	ColorUnknown   = RGB(0, 0, 0)
	ColorLightning = RGB(255, 255, 255)
)

// Status colors shown across every slot.
var (
	ColorConnecting = RGB(255, 165, 0)
	ColorConnected  = RGB(128, 0, 128)
	ColorFetchError = RGB(0, 255, 255)
)

// Fill returns n copies of c.
func Fill(n int, c Color) []Color {
	buf := make([]Color, n)
	for i := range buf {
		buf[i] = c
	}
	return buf
}
