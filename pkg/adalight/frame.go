// Package adalight encodes Adalight frames, the serial pixel protocol spoken
// by Arduino-class LED controllers.
package adalight

import "errors"

// HeaderSize is the length of the frame header.
const HeaderSize = 6

// MaxPixels is the largest pixel count the 16-bit count field can express.
const MaxPixels = 1 << 16

// ErrTooManyPixels is returned when a frame cannot encode the pixel count.
var ErrTooManyPixels = errors.New("adalight: too many pixels")

// BuildFrame wraps packed RGB data in an Adalight header:
// "Ada", count-1 high byte, count-1 low byte, checksum (hi ^ lo ^ 0x55).
// Trailing bytes that do not form a whole pixel are dropped.
func BuildFrame(rgb []byte) ([]byte, error) {
	pixels := len(rgb) / 3
	if pixels == 0 {
		return nil, nil
	}
	if pixels > MaxPixels {
		return nil, ErrTooManyPixels
	}

	count := uint16(pixels - 1)
	hi := byte(count >> 8)
	lo := byte(count)

	frame := make([]byte, HeaderSize+pixels*3)
	frame[0], frame[1], frame[2] = 'A', 'd', 'a'
	frame[3] = hi
	frame[4] = lo
	frame[5] = hi ^ lo ^ 0x55
	copy(frame[HeaderSize:], rgb[:pixels*3])
	return frame, nil
}
