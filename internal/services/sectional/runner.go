// Package sectional runs the map: it fetches METARs on a schedule, turns them
// into LED colors, animates lightning and pushes frames to the output.
package sectional

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/bbernstein/ledsectional/internal/database/models"
	"github.com/bbernstein/ledsectional/internal/led"
	"github.com/bbernstein/ledsectional/internal/mapconfig"
	"github.com/bbernstein/ledsectional/internal/metar"
	"github.com/bbernstein/ledsectional/internal/services/pubsub"
)

// Defaults for Config zero values.
const (
	DefaultRetryAfter        = 60 * time.Second
	DefaultLightningInterval = 5 * time.Second
	DefaultFlashDuration     = 25 * time.Millisecond
	DefaultFetchTimeout      = 30 * time.Second
	DefaultCycleHistory      = 500
)

// Fetcher downloads the raw METAR payload for a list of station codes.
type Fetcher interface {
	Fetch(ctx context.Context, codes []string) ([]byte, error)
}

// Display receives scaled frames.
type Display interface {
	Show(frame []led.Color) error
}

// CycleRecorder stores fetch history.
type CycleRecorder interface {
	Create(ctx context.Context, cycle *models.FetchCycle) error
	Prune(ctx context.Context, keep int) (int64, error)
}

// Publisher fans out snapshots and fetch results.
type Publisher interface {
	Publish(topic pubsub.Topic, message interface{})
}

// Config holds runner configuration.
type Config struct {
	Map               *mapconfig.Config
	RetryAfter        time.Duration
	LightningInterval time.Duration
	FlashDuration     time.Duration
	FetchTimeout      time.Duration
	ErrorOverlay      bool
	CycleHistory      int
}

// Deps are the runner's collaborators. Cycles and Publisher may be nil.
type Deps struct {
	Fetcher   Fetcher
	Display   Display
	Cycles    CycleRecorder
	Publisher Publisher
}

// FetchStatus is published after every fetch cycle.
type FetchStatus struct {
	Success     bool      `json:"success"`
	Error       *string   `json:"error,omitempty"`
	ReportCount int       `json:"reportCount"`
	Lightning   int       `json:"lightning"`
	StartedAt   time.Time `json:"startedAt"`
	Duration    string    `json:"duration"`
}

// Runner owns the display state. Only the loop goroutine touches it while
// the runner is started; everything else goes through the command channel.
type Runner struct {
	cfg  Config
	deps Deps

	state *led.State

	// Loop-owned cycle bookkeeping.
	overlay     bool
	lastFetch   time.Time
	lastSuccess time.Time
	lastErr     error
	reportCount int

	scheduler   *gocron.Scheduler
	fetchSignal chan struct{}
	commands    chan func()
	stopChan    chan struct{}
	done        chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc

	// inlineMu serializes commands applied while the loop is not running.
	inlineMu sync.Mutex

	mu       sync.RWMutex
	snapshot Snapshot
	sequence uint64
	running  bool
	started  bool
}

// NewRunner creates a runner. The display starts black at the map's
// configured brightness.
func NewRunner(cfg Config, deps Deps) (*Runner, error) {
	if cfg.Map == nil {
		return nil, errors.New("map config is required")
	}
	if deps.Fetcher == nil || deps.Display == nil {
		return nil, errors.New("fetcher and display are required")
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}
	if cfg.LightningInterval <= 0 {
		cfg.LightningInterval = DefaultLightningInterval
	}
	if cfg.FlashDuration <= 0 {
		cfg.FlashDuration = DefaultFlashDuration
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.CycleHistory <= 0 {
		cfg.CycleHistory = DefaultCycleHistory
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		cfg:         cfg,
		deps:        deps,
		state:       led.NewState(cfg.Map.AirportCount(), cfg.Map.Settings.Brightness),
		scheduler:   gocron.NewScheduler(time.UTC),
		fetchSignal: make(chan struct{}, 1),
		commands:    make(chan func()),
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	r.snapshot = r.buildSnapshot(r.state.ScaledBuffer())
	return r, nil
}

// Start runs the first fetch immediately and then on the map's request
// interval.
func (r *Runner) Start() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.running = true
	r.mu.Unlock()

	interval := r.cfg.Map.Settings.RequestInterval()
	if _, err := r.scheduler.Every(interval).WaitForSchedule().Do(r.TriggerFetch); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return fmt.Errorf("schedule metar fetch: %w", err)
	}
	r.scheduler.StartAsync()

	log.Printf("🛫 Sectional runner started: %d LEDs, %d stations, fetch every %v",
		r.cfg.Map.AirportCount(), len(r.cfg.Map.MetarCodes()), interval)

	r.TriggerFetch()
	go r.loop()
	return nil
}

// Stop stops the scheduler and the loop, cancelling any fetch in flight.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	r.scheduler.Stop()
	r.cancel()
	close(r.stopChan)
	<-r.done
	log.Printf("🛬 Sectional runner stopped")
}

// TriggerFetch asks the loop for a fetch cycle. Requests made while one is
// already pending are coalesced.
func (r *Runner) TriggerFetch() {
	select {
	case r.fetchSignal <- struct{}{}:
	default:
	}
}

// SetBrightness changes the global brightness and re-shows the display.
func (r *Runner) SetBrightness(brightness uint8) {
	r.submit(func() {
		r.state.SetBrightness(brightness)
		r.show()
	})
}

// ShowStatus fills every LED with a status color, e.g. while connecting.
// The next successful fetch replaces it.
func (r *Runner) ShowStatus(c led.Color) {
	r.submit(func() {
		r.state.SetLightningIndices(nil)
		if err := r.state.SetBuffer(led.Fill(r.state.Len(), c)); err != nil {
			log.Printf("status color: %v", err)
			return
		}
		r.overlay = false
		r.show()
	})
}

// Snapshot returns the latest published display snapshot.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.clone()
}

// IsRunning reports whether the loop is active.
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// submit runs cmd on the loop goroutine and waits for it, or runs it inline
// when the loop is not running.
func (r *Runner) submit(cmd func()) {
	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()

	if running {
		finished := make(chan struct{})
		wrapped := func() {
			defer close(finished)
			cmd()
		}
		select {
		case r.commands <- wrapped:
			<-finished
			return
		case <-r.done:
		}
	}

	r.inlineMu.Lock()
	defer r.inlineMu.Unlock()
	cmd()
}

func (r *Runner) loop() {
	defer close(r.done)

	lightning := time.NewTicker(r.cfg.LightningInterval)
	defer lightning.Stop()

	var retry *time.Timer
	var retryC <-chan time.Time
	defer func() {
		if retry != nil {
			retry.Stop()
		}
	}()

	cycle := func() {
		if retry != nil {
			retry.Stop()
			retry, retryC = nil, nil
		}
		if err := r.runCycle(); err != nil {
			retry = time.NewTimer(r.cfg.RetryAfter)
			retryC = retry.C
		}
	}

	for {
		select {
		case <-r.stopChan:
			return
		case <-r.fetchSignal:
			cycle()
		case <-retryC:
			retry, retryC = nil, nil
			log.Printf("🛫 Retrying METAR fetch")
			cycle()
		case cmd := <-r.commands:
			cmd()
		case <-lightning.C:
			r.animate()
		}
	}
}

// runCycle fetches, parses and maps one round of reports.
func (r *Runner) runCycle() error {
	started := time.Now()
	codes := r.cfg.Map.MetarCodes()

	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.FetchTimeout)
	defer cancel()

	reports, err := r.fetchReports(ctx, codes)
	r.lastFetch = started
	if err != nil {
		if r.ctx.Err() != nil {
			return nil
		}
		r.lastErr = err
		log.Printf("⚠️  METAR fetch failed: %v (retrying in %v)", err, r.cfg.RetryAfter)
		if r.cfg.ErrorOverlay {
			r.overlay = true
		}
		r.show()
		r.record(started, codes, 0, 0, err)
		return err
	}

	buffer, lightning := led.Update(r.cfg.Map, reports)
	if err := r.state.SetBuffer(buffer); err != nil {
		r.lastErr = err
		r.record(started, codes, len(reports), 0, err)
		return err
	}
	r.state.SetLightningIndices(lightning)

	r.overlay = false
	r.lastErr = nil
	r.lastSuccess = started
	r.reportCount = len(reports)

	log.Printf("🛫 Received %d METAR reports for %d stations (%d with thunderstorms)",
		len(reports), len(codes), len(r.state.LightningIndices()))

	r.show()
	r.record(started, codes, len(reports), len(r.state.LightningIndices()), nil)
	return nil
}

func (r *Runner) fetchReports(ctx context.Context, codes []string) ([]metar.Report, error) {
	payload, err := r.deps.Fetcher.Fetch(ctx, codes)
	if err != nil {
		return nil, err
	}
	return metar.Parse(payload)
}

// animate flashes thunderstorm stations white for the flash duration.
func (r *Runner) animate() {
	if !r.cfg.Map.Settings.DoLightning || r.overlay {
		return
	}
	if !r.state.ApplyFlash() {
		return
	}
	r.show()

	timer := time.NewTimer(r.cfg.FlashDuration)
	select {
	case <-timer.C:
	case <-r.stopChan:
		timer.Stop()
	}

	r.state.Restore()
	r.show()
}

// show writes the current frame to the display and publishes a snapshot.
func (r *Runner) show() {
	var frame []led.Color
	if r.overlay {
		frame = led.Fill(r.state.Len(), led.ColorFetchError.Scale(r.state.Brightness()))
	} else {
		frame = r.state.ScaledBuffer()
	}

	if err := r.deps.Display.Show(frame); err != nil {
		log.Printf("LED output error: %v", err)
	}

	snap := r.buildSnapshot(frame)
	r.mu.Lock()
	r.sequence++
	snap.Sequence = r.sequence
	r.snapshot = snap
	r.mu.Unlock()

	if r.deps.Publisher != nil {
		r.deps.Publisher.Publish(pubsub.TopicDisplay, snap.clone())
	}
}

func (r *Runner) record(started time.Time, codes []string, reports, lightning int, cycleErr error) {
	elapsed := time.Since(started)
	status := FetchStatus{
		Success:     cycleErr == nil,
		ReportCount: reports,
		Lightning:   lightning,
		StartedAt:   started,
		Duration:    elapsed.Round(time.Millisecond).String(),
	}
	if cycleErr != nil {
		msg := cycleErr.Error()
		status.Error = &msg
	}
	if r.deps.Publisher != nil {
		r.deps.Publisher.Publish(pubsub.TopicFetchStatus, status)
	}

	if r.deps.Cycles == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cycle := &models.FetchCycle{
		StartedAt:      started,
		DurationMs:     elapsed.Milliseconds(),
		Success:        cycleErr == nil,
		StationCount:   len(codes),
		ReportCount:    reports,
		LightningCount: lightning,
		Error:          status.Error,
	}
	if err := r.deps.Cycles.Create(ctx, cycle); err != nil {
		log.Printf("Failed to record fetch cycle: %v", err)
		return
	}
	if _, err := r.deps.Cycles.Prune(ctx, r.cfg.CycleHistory); err != nil {
		log.Printf("Failed to prune fetch cycles: %v", err)
	}
}
