package led

import (
	"errors"
	"fmt"
)

// ErrBufferLength is returned when a buffer does not match the LED count.
var ErrBufferLength = errors.New("buffer length does not match LED count")

// FlashPhase is the lightning state of the whole lightning index set.
type FlashPhase int

const (
	// PhaseIdle means every slot shows its mapped color.
	PhaseIdle FlashPhase = iota
	// PhaseFlashing means the lightning slots are forced to white.
	PhaseFlashing
)

func (p FlashPhase) String() string {
	if p == PhaseFlashing {
		return "FLASHING"
	}
	return "IDLE"
}

// State owns the unscaled LED color buffer, the brightness in effect and the
// lightning overlay. It is not safe for concurrent use; one control loop owns it.
type State struct {
	buffer     []Color
	brightness uint8

	lightning []int
	saved     []Color
	phase     FlashPhase
}

// NewState creates a state with n LEDs, all off.
func NewState(n int, brightness uint8) *State {
	if n < 0 {
		n = 0
	}
	return &State{
		buffer:     make([]Color, n),
		brightness: brightness,
	}
}

// Len returns the LED count.
func (s *State) Len() int {
	return len(s.buffer)
}

// Brightness returns the brightness in effect.
func (s *State) Brightness() uint8 {
	return s.brightness
}

// SetBrightness changes the read-time brightness. The stored buffer is untouched.
func (s *State) SetBrightness(brightness uint8) {
	s.brightness = brightness
}

// Phase returns the lightning phase.
func (s *State) Phase() FlashPhase {
	return s.phase
}

// Get returns the unscaled color at index.
func (s *State) Get(index int) (Color, error) {
	if index < 0 || index >= len(s.buffer) {
		return Color{}, fmt.Errorf("LED index %d out of bounds (num_leds: %d)", index, len(s.buffer))
	}
	return s.buffer[index], nil
}

// Buffer returns a copy of the unscaled buffer.
func (s *State) Buffer() []Color {
	out := make([]Color, len(s.buffer))
	copy(out, s.buffer)
	return out
}

// SetBuffer replaces the whole buffer. The lightning set is kept and its
// restore snapshot is retaken from the new colors; only SetLightningIndices
// replaces the set.
func (s *State) SetBuffer(colors []Color) error {
	if len(colors) != len(s.buffer) {
		return fmt.Errorf("%w: got %d, want %d", ErrBufferLength, len(colors), len(s.buffer))
	}
	copy(s.buffer, colors)
	for n, i := range s.lightning {
		s.saved[n] = s.buffer[i]
	}
	s.phase = PhaseIdle
	return nil
}

// LightningIndices returns a copy of the lightning index set.
func (s *State) LightningIndices() []int {
	out := make([]int, len(s.lightning))
	copy(out, s.lightning)
	return out
}

// SetLightningIndices records which slots flash and snapshots their current
// colors as the restore target. Out-of-range indices are dropped. If the
// previous set is mid-flash it is restored first so the snapshot never
// captures the flash color.
func (s *State) SetLightningIndices(indices []int) {
	if s.phase == PhaseFlashing {
		s.Restore()
	}

	s.lightning = make([]int, 0, len(indices))
	s.saved = make([]Color, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(s.buffer) {
			continue
		}
		s.lightning = append(s.lightning, i)
		s.saved = append(s.saved, s.buffer[i])
	}
	s.phase = PhaseIdle
}

// ApplyFlash sets every lightning slot to white. It returns false when the set
// is empty. Calling it again while flashing changes nothing.
func (s *State) ApplyFlash() bool {
	if len(s.lightning) == 0 {
		return false
	}
	for _, i := range s.lightning {
		s.buffer[i] = ColorLightning
	}
	s.phase = PhaseFlashing
	return true
}

// Restore writes the snapshotted colors back. The lightning set is kept.
func (s *State) Restore() {
	for n, i := range s.lightning {
		s.buffer[i] = s.saved[n]
	}
	s.phase = PhaseIdle
}

// ScaledBuffer returns the buffer scaled by the current brightness.
func (s *State) ScaledBuffer() []Color {
	out := make([]Color, len(s.buffer))
	for i, c := range s.buffer {
		out[i] = c.Scale(s.brightness)
	}
	return out
}
