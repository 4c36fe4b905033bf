package output

import (
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"

	"github.com/bbernstein/ledsectional/internal/led"
	"github.com/bbernstein/ledsectional/pkg/artnet"
)

// ArtNetDriver sends frames as ArtDmx packets over UDP, 170 pixels per
// universe starting at a configured universe.
type ArtNetDriver struct {
	mu sync.Mutex

	broadcastAddr string
	port          int
	universe      int

	// Art-Net sequence number (increments for each packet, wraps at 255)
	sequence byte
	conn     *net.UDPConn
	lastSize int
}

// NewArtNetDriver creates an Art-Net driver. Zero values fall back to the
// limited broadcast address, the standard port and universe 1.
func NewArtNetDriver(broadcastAddr string, port, universe int) *ArtNetDriver {
	if broadcastAddr == "" {
		broadcastAddr = "255.255.255.255"
	}
	if port <= 0 {
		port = artnet.DefaultPort
	}
	if universe <= 0 {
		universe = 1
	}
	return &ArtNetDriver{
		broadcastAddr: broadcastAddr,
		port:          port,
		universe:      universe,
	}
}

func (d *ArtNetDriver) Name() string { return DriverArtNet }

// Open creates the UDP socket.
func (d *ArtNetDriver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp4", d.broadcastAddr+":"+strconv.Itoa(d.port))
	if err != nil {
		return fmt.Errorf("resolve Art-Net address: %w", err)
	}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("dial Art-Net address: %w", err)
	}
	d.conn = conn

	log.Printf("📡 Art-Net output enabled, broadcasting to %s:%d from universe %d", d.broadcastAddr, d.port, d.universe)
	return nil
}

// Write sends one packet per universe the frame spans.
func (d *ArtNetDriver) Write(frame []led.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return fmt.Errorf("art-net driver not open")
	}

	d.lastSize = len(frame)
	for i, data := range artnet.SplitPixels(packRGB(frame)) {
		d.sequence++
		packet := artnet.BuildDMXPacket(d.universe+i, data, d.sequence)
		if _, err := d.conn.Write(packet); err != nil {
			return fmt.Errorf("send universe %d: %w", d.universe+i, err)
		}
	}
	return nil
}

// Close sends a final blackout and closes the socket.
func (d *ArtNetDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}

	blackout := make([]byte, d.lastSize*artnet.ChannelsPerPixel)
	for i, data := range artnet.SplitPixels(blackout) {
		d.sequence++
		_, _ = d.conn.Write(artnet.BuildDMXPacket(d.universe+i, data, d.sequence))
	}

	err := d.conn.Close()
	d.conn = nil
	return err
}
