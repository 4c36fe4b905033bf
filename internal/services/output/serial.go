package output

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"go.bug.st/serial"

	"github.com/bbernstein/ledsectional/internal/led"
	"github.com/bbernstein/ledsectional/pkg/adalight"
)

// DefaultSerialBaud is the baud rate most Adalight sketches use.
const DefaultSerialBaud = 115200

// PortOpener opens a serial port for writing.
type PortOpener func(name string, baud int) (io.WriteCloser, error)

func openSerialPort(name string, baud int) (io.WriteCloser, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

// SerialDriver writes Adalight frames to a microcontroller on a serial port.
type SerialDriver struct {
	mu sync.Mutex

	portName string
	baudRate int
	opener   PortOpener
	port     io.WriteCloser
	lastSize int
}

// NewSerialDriver creates a serial driver.
func NewSerialDriver(portName string, baudRate int) *SerialDriver {
	if baudRate <= 0 {
		baudRate = DefaultSerialBaud
	}
	return &SerialDriver{
		portName: portName,
		baudRate: baudRate,
		opener:   openSerialPort,
	}
}

// SetOpener replaces the port opener (for testing).
func (d *SerialDriver) SetOpener(opener PortOpener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opener = opener
}

func (d *SerialDriver) Name() string { return DriverSerial }

// Open opens the serial port.
func (d *SerialDriver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port != nil {
		return nil
	}
	if d.portName == "" {
		return errors.New("serial port is empty")
	}

	port, err := d.opener(d.portName, d.baudRate)
	if err != nil {
		return fmt.Errorf("open serial port %q: %w", d.portName, err)
	}
	d.port = port

	log.Printf("🔌 Serial LED output on %s at %d baud", d.portName, d.baudRate)
	return nil
}

// Write sends one Adalight frame.
func (d *SerialDriver) Write(frame []led.Color) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return errors.New("serial driver not open")
	}

	data, err := adalight.BuildFrame(packRGB(frame))
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	d.lastSize = len(frame)
	if _, err := d.port.Write(data); err != nil {
		return fmt.Errorf("write serial frame: %w", err)
	}
	return nil
}

// Close blanks the strip and closes the port.
func (d *SerialDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return nil
	}
	if d.lastSize > 0 {
		if data, err := adalight.BuildFrame(make([]byte, d.lastSize*3)); err == nil {
			_, _ = d.port.Write(data)
		}
	}
	err := d.port.Close()
	d.port = nil
	return err
}
