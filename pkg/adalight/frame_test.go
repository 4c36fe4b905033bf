package adalight

import (
	"errors"
	"testing"
)

func TestBuildFrame(t *testing.T) {
	rgb := []byte{255, 0, 0, 0, 255, 0}
	frame, err := BuildFrame(rgb)
	if err != nil {
		t.Fatalf("BuildFrame() error = %v", err)
	}

	if string(frame[0:3]) != "Ada" {
		t.Errorf("magic = %q, want Ada", frame[0:3])
	}
	if frame[3] != 0 || frame[4] != 1 {
		t.Errorf("count = %d,%d want 0,1", frame[3], frame[4])
	}
	if frame[5] != 0x54 {
		t.Errorf("checksum = 0x%02x, want 0x54", frame[5])
	}
	if len(frame) != HeaderSize+6 {
		t.Errorf("len = %d, want %d", len(frame), HeaderSize+6)
	}
	for i, v := range rgb {
		if frame[HeaderSize+i] != v {
			t.Errorf("data[%d] = %d, want %d", i, frame[HeaderSize+i], v)
		}
	}
}

func TestBuildFrame_LargeCount(t *testing.T) {
	frame, err := BuildFrame(make([]byte, 300*3))
	if err != nil {
		t.Fatalf("BuildFrame() error = %v", err)
	}
	// 299 = 0x012B
	if frame[3] != 0x01 || frame[4] != 0x2B {
		t.Errorf("count = 0x%02x%02x, want 0x012b", frame[3], frame[4])
	}
	if frame[5] != 0x01^0x2B^0x55 {
		t.Errorf("checksum = 0x%02x", frame[5])
	}
}

func TestBuildFrame_Edges(t *testing.T) {
	frame, err := BuildFrame(nil)
	if err != nil || frame != nil {
		t.Errorf("BuildFrame(nil) = %v, %v; want nil, nil", frame, err)
	}

	frame, err = BuildFrame([]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("BuildFrame() error = %v", err)
	}
	if len(frame) != HeaderSize+3 {
		t.Errorf("partial pixel should be dropped, len = %d", len(frame))
	}

	_, err = BuildFrame(make([]byte, (MaxPixels+1)*3))
	if !errors.Is(err, ErrTooManyPixels) {
		t.Errorf("Expected ErrTooManyPixels, got %v", err)
	}
}
