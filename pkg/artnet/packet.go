// Package artnet builds Art-Net ArtDmx packets for pixel output.
package artnet

import (
	"encoding/binary"
)

const (
	// OpCodeDMX is the Art-Net operation code for DMX data.
	OpCodeDMX uint16 = 0x5000
	// ProtocolVersion is the Art-Net protocol version.
	ProtocolVersion uint16 = 14
	// HeaderSize is the ArtDmx header length in bytes.
	HeaderSize = 18
	// MaxDataLength is the number of DMX channels per universe.
	MaxDataLength = 512
	// ChannelsPerPixel is the number of channels one RGB pixel uses.
	ChannelsPerPixel = 3
	// PixelsPerUniverse is how many whole RGB pixels fit in one universe.
	PixelsPerUniverse = MaxDataLength / ChannelsPerPixel
	// DefaultPort is the standard Art-Net UDP port.
	DefaultPort = 6454
)

// ArtNetID is the Art-Net packet identifier.
var ArtNetID = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

// BuildDMXPacket creates an ArtDmx packet. Universe is 1-based as configured
// by the user and written 0-based on the wire. Data is padded to an even length
// of at least 2 and truncated to 512 channels.
func BuildDMXPacket(universe int, data []byte, sequence byte) []byte {
	if len(data) > MaxDataLength {
		data = data[:MaxDataLength]
	}
	length := len(data)
	if length < 2 {
		length = 2
	}
	if length%2 != 0 {
		length++
	}

	packet := make([]byte, HeaderSize+length)
	copy(packet[0:8], ArtNetID)
	binary.LittleEndian.PutUint16(packet[8:10], OpCodeDMX)
	binary.BigEndian.PutUint16(packet[10:12], ProtocolVersion)
	packet[12] = sequence
	packet[13] = 0 // physical input port
	binary.LittleEndian.PutUint16(packet[14:16], uint16(universe-1))
	binary.BigEndian.PutUint16(packet[16:18], uint16(length))
	copy(packet[HeaderSize:], data)

	return packet
}

// SplitPixels splits packed RGB data into per-universe channel slices so that
// no pixel straddles two universes.
func SplitPixels(rgb []byte) [][]byte {
	chunk := PixelsPerUniverse * ChannelsPerPixel
	var universes [][]byte
	for start := 0; start < len(rgb); start += chunk {
		end := start + chunk
		if end > len(rgb) {
			end = len(rgb)
		}
		universes = append(universes, rgb[start:end])
	}
	return universes
}
