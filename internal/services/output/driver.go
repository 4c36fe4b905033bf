// Package output writes scaled LED frames to a pixel controller and keeps the
// controller refreshed between updates.
package output

import (
	"fmt"
	"sync"

	"github.com/bbernstein/ledsectional/internal/led"
)

// Driver writes frames to one kind of LED hardware.
type Driver interface {
	Name() string
	Open() error
	Write(frame []led.Color) error
	Close() error
}

// Driver names accepted by NewDriver.
const (
	DriverArtNet = "artnet"
	DriverSerial = "serial"
	DriverNone   = "none"
)

// DriverConfig selects and configures a driver.
type DriverConfig struct {
	Name string

	ArtNetBroadcast string
	ArtNetPort      int
	ArtNetUniverse  int

	SerialPort string
	SerialBaud int
}

// NewDriver builds the driver named in cfg.
func NewDriver(cfg DriverConfig) (Driver, error) {
	switch cfg.Name {
	case DriverArtNet:
		return NewArtNetDriver(cfg.ArtNetBroadcast, cfg.ArtNetPort, cfg.ArtNetUniverse), nil
	case DriverSerial:
		return NewSerialDriver(cfg.SerialPort, cfg.SerialBaud), nil
	case DriverNone, "":
		return NewNullDriver(), nil
	default:
		return nil, fmt.Errorf("unknown LED driver %q", cfg.Name)
	}
}

// packRGB flattens a frame into r,g,b bytes.
func packRGB(frame []led.Color) []byte {
	rgb := make([]byte, 0, len(frame)*3)
	for _, c := range frame {
		rgb = append(rgb, c.R, c.G, c.B)
	}
	return rgb
}

// NullDriver keeps the most recent frame in memory. It is used when no
// hardware is attached.
type NullDriver struct {
	mu     sync.Mutex
	last   []led.Color
	writes int
	open   bool
}

// NewNullDriver creates a NullDriver.
func NewNullDriver() *NullDriver {
	return &NullDriver{}
}

func (d *NullDriver) Name() string { return DriverNone }

func (d *NullDriver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = true
	return nil
}

func (d *NullDriver) Write(frame []led.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = append(d.last[:0], frame...)
	d.writes++
	return nil
}

func (d *NullDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

// Last returns a copy of the last written frame.
func (d *NullDriver) Last() []led.Color {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]led.Color, len(d.last))
	copy(out, d.last)
	return out
}

// Writes returns how many frames have been written.
func (d *NullDriver) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}
