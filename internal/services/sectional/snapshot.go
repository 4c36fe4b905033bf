package sectional

import (
	"time"

	"github.com/bbernstein/ledsectional/internal/led"
)

// Snapshot is an immutable view of what the map is showing.
type Snapshot struct {
	Sequence    uint64      `json:"sequence"`
	Frame       []led.Color `json:"frame"`
	Buffer      []led.Color `json:"buffer"`
	Lightning   []int       `json:"lightning"`
	Brightness  uint8       `json:"brightness"`
	Phase       string      `json:"phase"`
	Overlay     bool        `json:"fetchErrorOverlay"`
	ReportCount int         `json:"reportCount"`
	LastFetch   *time.Time  `json:"lastFetch,omitempty"`
	LastSuccess *time.Time  `json:"lastSuccess,omitempty"`
	LastError   *string     `json:"lastError,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// buildSnapshot captures loop-owned state; only the loop (or an inline
// command) calls it.
func (r *Runner) buildSnapshot(frame []led.Color) Snapshot {
	snap := Snapshot{
		Frame:       frame,
		Buffer:      r.state.Buffer(),
		Lightning:   r.state.LightningIndices(),
		Brightness:  r.state.Brightness(),
		Phase:       r.state.Phase().String(),
		Overlay:     r.overlay,
		ReportCount: r.reportCount,
		UpdatedAt:   time.Now(),
	}
	if !r.lastFetch.IsZero() {
		t := r.lastFetch
		snap.LastFetch = &t
	}
	if !r.lastSuccess.IsZero() {
		t := r.lastSuccess
		snap.LastSuccess = &t
	}
	if r.lastErr != nil {
		msg := r.lastErr.Error()
		snap.LastError = &msg
	}
	return snap
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Frame = append([]led.Color(nil), s.Frame...)
	out.Buffer = append([]led.Color(nil), s.Buffer...)
	out.Lightning = append([]int{}, s.Lightning...)
	return out
}
