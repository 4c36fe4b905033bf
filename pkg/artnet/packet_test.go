package artnet

import (
	"encoding/binary"
	"testing"
)

func TestBuildDMXPacket(t *testing.T) {
	tests := []struct {
		name         string
		universe     int
		data         []byte
		wantUniverse uint16
		wantLength   uint16
	}{
		{
			name:         "Universe 1 full",
			universe:     1,
			data:         make([]byte, 512),
			wantUniverse: 0, // 0-based on the wire
			wantLength:   512,
		},
		{
			name:         "Universe 3 odd length padded",
			universe:     3,
			data:         make([]byte, 15),
			wantUniverse: 2,
			wantLength:   16,
		},
		{
			name:         "Empty data padded to minimum",
			universe:     1,
			data:         nil,
			wantUniverse: 0,
			wantLength:   2,
		},
		{
			name:         "Oversized data truncated",
			universe:     2,
			data:         make([]byte, 600),
			wantUniverse: 1,
			wantLength:   512,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet := BuildDMXPacket(tt.universe, tt.data, 42)

			if len(packet) != HeaderSize+int(tt.wantLength) {
				t.Errorf("packet size = %d, want %d", len(packet), HeaderSize+int(tt.wantLength))
			}
			if got := string(packet[0:8]); got != "Art-Net\x00" {
				t.Errorf("ID = %q", got)
			}
			if got := binary.LittleEndian.Uint16(packet[8:10]); got != OpCodeDMX {
				t.Errorf("OpCode = 0x%04x, want 0x%04x", got, OpCodeDMX)
			}
			if got := binary.BigEndian.Uint16(packet[10:12]); got != ProtocolVersion {
				t.Errorf("ProtocolVersion = %d, want %d", got, ProtocolVersion)
			}
			if packet[12] != 42 {
				t.Errorf("Sequence = %d, want 42", packet[12])
			}
			if got := binary.LittleEndian.Uint16(packet[14:16]); got != tt.wantUniverse {
				t.Errorf("Universe = %d, want %d", got, tt.wantUniverse)
			}
			if got := binary.BigEndian.Uint16(packet[16:18]); got != tt.wantLength {
				t.Errorf("Length = %d, want %d", got, tt.wantLength)
			}
		})
	}
}

func TestBuildDMXPacket_Data(t *testing.T) {
	data := []byte{255, 0, 128}
	packet := BuildDMXPacket(1, data, 0)

	for i, v := range data {
		if packet[HeaderSize+i] != v {
			t.Errorf("data[%d] = %d, want %d", i, packet[HeaderSize+i], v)
		}
	}
	if packet[HeaderSize+3] != 0 {
		t.Errorf("padding byte = %d, want 0", packet[HeaderSize+3])
	}
}

func TestSplitPixels(t *testing.T) {
	tests := []struct {
		pixels     int
		wantChunks []int
	}{
		{0, nil},
		{1, []int{3}},
		{170, []int{510}},
		{171, []int{510, 3}},
		{400, []int{510, 510, 180}},
	}

	for _, tt := range tests {
		chunks := SplitPixels(make([]byte, tt.pixels*ChannelsPerPixel))
		if len(chunks) != len(tt.wantChunks) {
			t.Errorf("SplitPixels(%d pixels) = %d chunks, want %d", tt.pixels, len(chunks), len(tt.wantChunks))
			continue
		}
		for i, c := range chunks {
			if len(c) != tt.wantChunks[i] {
				t.Errorf("SplitPixels(%d pixels)[%d] len = %d, want %d", tt.pixels, i, len(c), tt.wantChunks[i])
			}
		}
	}
}
