package output

import (
	"log"
	"sync"
	"time"

	"github.com/bbernstein/ledsectional/internal/led"
)

// Config holds output service configuration.
type Config struct {
	// RefreshRateHz is how often the last frame is re-sent when nothing changed.
	RefreshRateHz int
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{RefreshRateHz: 1}
}

// Service owns the LED driver. Frames are written as soon as they are shown
// and re-sent at the refresh rate so controllers that time out stay lit.
type Service struct {
	mu sync.RWMutex

	driver        Driver
	refreshRateHz int

	frame     []led.Color
	frames    uint64
	lastWrite time.Time
	lastErr   error

	stopChan chan struct{}
	running  bool
}

// NewService creates a new output service.
func NewService(driver Driver, cfg Config) *Service {
	refreshRate := cfg.RefreshRateHz
	if refreshRate <= 0 {
		refreshRate = 1
	}
	if driver == nil {
		driver = NewNullDriver()
	}
	return &Service{
		driver:        driver,
		refreshRateHz: refreshRate,
		stopChan:      make(chan struct{}),
	}
}

// Initialize opens the driver and starts the keep-alive loop.
func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if err := s.driver.Open(); err != nil {
		return err
	}

	log.Printf("💡 LED output initialized (driver=%s, keep-alive %dHz)", s.driver.Name(), s.refreshRateHz)

	s.running = true
	go s.keepAliveLoop()
	return nil
}

// Stop stops the keep-alive loop and closes the driver.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)

	if err := s.driver.Close(); err != nil {
		log.Printf("LED driver close error: %v", err)
	}
	log.Printf("💡 LED output stopped")
}

// Show writes a frame immediately and remembers it for keep-alive.
func (s *Service) Show(frame []led.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = append(s.frame[:0], frame...)
	return s.writeLocked()
}

func (s *Service) keepAliveLoop() {
	interval := time.Second / time.Duration(s.refreshRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.frame != nil && time.Since(s.lastWrite) >= interval {
				if err := s.writeLocked(); err != nil {
					log.Printf("LED keep-alive error: %v", err)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Service) writeLocked() error {
	err := s.driver.Write(s.frame)
	s.lastErr = err
	if err != nil {
		return err
	}
	s.frames++
	s.lastWrite = time.Now()
	return nil
}

// LastFrame returns a copy of the most recently shown frame.
func (s *Service) LastFrame() []led.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]led.Color, len(s.frame))
	copy(out, s.frame)
	return out
}

// FrameCount returns how many frames the driver has accepted.
func (s *Service) FrameCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// LastError returns the error from the most recent write, if any.
func (s *Service) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// DriverName returns the active driver's name.
func (s *Service) DriverName() string {
	return s.driver.Name()
}

// IsRunning reports whether the keep-alive loop is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
