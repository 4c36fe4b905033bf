package wifi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bbernstein/ledsectional/internal/database/models"
	"github.com/bbernstein/ledsectional/internal/mapconfig"
)

const (
	// DefaultAPSSID is the open network served while waiting for credentials.
	DefaultAPSSID = "LED-Sectional-Setup"
	// DefaultAPTimeout is how long the setup network stays up.
	DefaultAPTimeout = 3 * time.Minute
	// DefaultConnectTimeout bounds one join attempt.
	DefaultConnectTimeout = 30 * time.Second
	// APConnectionName is the NetworkManager connection name for the setup network.
	APConnectionName = "LED-Sectional-AP"
	// APIPAddress is the device address while serving the setup network.
	APIPAddress = "192.168.4.1"
)

// ErrNoCredentials is returned when neither stored nor configured credentials exist.
var ErrNoCredentials = errors.New("no wifi credentials")

// Config holds Wi-Fi service configuration.
type Config struct {
	Interface      string
	APSSID         string
	APTimeout      time.Duration
	ConnectTimeout time.Duration
}

// Service manages joining a network and the setup access point.
type Service struct {
	mu sync.RWMutex

	cfg      Config
	store    CredentialStore
	override mapconfig.WifiOverride

	mode        Mode
	source      CredentialSource
	apConfig    *APConfig
	apStartTime time.Time
	apTimer     *time.Timer
	lastErr     error
	closed      bool

	// supported is false off Linux, where nmcli does not exist.
	supported bool

	statusCallback func(*Status)

	executor CommandExecutor
}

// realExecutor implements CommandExecutor using actual shell commands.
type realExecutor struct{}

func (e *realExecutor) Execute(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

func (e *realExecutor) ExecuteWithTimeout(timeout time.Duration, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

// NewService creates a Wi-Fi service. store may be nil, in which case only
// the map config override is used.
func NewService(cfg Config, store CredentialStore, override mapconfig.WifiOverride) *Service {
	if cfg.Interface == "" {
		cfg.Interface = "wlan0"
	}
	if cfg.APSSID == "" {
		cfg.APSSID = DefaultAPSSID
	}
	if cfg.APTimeout <= 0 {
		cfg.APTimeout = DefaultAPTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	return &Service{
		cfg:       cfg,
		store:     store,
		override:  override,
		mode:      ModeClient,
		source:    SourceNone,
		supported: runtime.GOOS == "linux",
		executor:  &realExecutor{},
	}
}

// SetExecutor sets the command executor (for testing).
func (s *Service) SetExecutor(executor CommandExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = executor
}

// SetStatusCallback sets the callback for status updates.
func (s *Service) SetStatusCallback(callback func(*Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCallback = callback
}

// GetMode returns the current Wi-Fi mode.
func (s *Service) GetMode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// ResolveCredentials returns stored credentials first and the map config's
// [wifi] section second.
func (s *Service) ResolveCredentials(ctx context.Context) (Credentials, error) {
	if s.store != nil {
		ssid, ok, err := s.store.GetString(ctx, models.SettingWifiSSID)
		if err != nil {
			return Credentials{Source: SourceNone}, fmt.Errorf("load stored wifi credentials: %w", err)
		}
		if ok && ssid != "" {
			password, _, err := s.store.GetString(ctx, models.SettingWifiPassword)
			if err != nil {
				return Credentials{Source: SourceNone}, fmt.Errorf("load stored wifi credentials: %w", err)
			}
			return Credentials{SSID: ssid, Password: password, Source: SourceStored}, nil
		}
	}

	if s.override.Present() {
		return Credentials{SSID: s.override.SSID, Password: s.override.Password, Source: SourceConfig}, nil
	}

	return Credentials{Source: SourceNone}, nil
}

// SaveCredentials stores provisioned credentials.
func (s *Service) SaveCredentials(ctx context.Context, ssid, password string) error {
	if s.store == nil {
		return errors.New("no credential store configured")
	}
	if strings.TrimSpace(ssid) == "" {
		return errors.New("ssid is required")
	}
	if _, err := s.store.Upsert(ctx, models.SettingWifiSSID, ssid); err != nil {
		return fmt.Errorf("save wifi ssid: %w", err)
	}
	if _, err := s.store.Upsert(ctx, models.SettingWifiPassword, password); err != nil {
		return fmt.Errorf("save wifi password: %w", err)
	}
	return nil
}

// EnsureConnected joins the resolved network, or starts the setup access
// point when there are no credentials or the join fails.
func (s *Service) EnsureConnected(ctx context.Context) (Mode, error) {
	if !s.supported {
		s.mu.Lock()
		s.mode = ModeUnavailable
		s.mu.Unlock()
		return ModeUnavailable, nil
	}

	creds, err := s.ResolveCredentials(ctx)
	if err != nil {
		log.Printf("📶 %v", err)
	}

	s.mu.Lock()
	s.source = creds.Source
	s.mu.Unlock()

	if creds.Present() {
		result, err := s.Connect(ctx, creds.SSID, creds.Password)
		if err != nil {
			return s.GetMode(), err
		}
		if result.Success {
			return ModeClient, nil
		}
	} else {
		log.Printf("📶 No Wi-Fi credentials stored or configured")
	}

	if err := s.StartAPMode(ctx); err != nil {
		return s.GetMode(), err
	}
	return ModeAP, nil
}

// Connect joins ssid. A failed join is reported in the result, not as an error.
func (s *Service) Connect(ctx context.Context, ssid, password string) (*ConnectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.supported {
		return &ConnectionResult{Success: false, Message: stringPtr("Wi-Fi is only managed on Linux"), Mode: s.GetMode()}, nil
	}

	s.mu.Lock()
	s.mode = ModeConnecting
	executor := s.executor
	s.mu.Unlock()
	s.notifyStatusChange()

	log.Printf("📶 Connecting to %q", ssid)

	args := []string{"device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	args = append(args, "ifname", s.cfg.Interface)

	_, err := executor.ExecuteWithTimeout(s.cfg.ConnectTimeout, "nmcli", args...)

	s.mu.Lock()
	s.mode = ModeClient
	s.lastErr = nil
	if err != nil {
		s.lastErr = fmt.Errorf("connect to %q: %w", ssid, err)
	}
	s.mu.Unlock()
	s.notifyStatusChange()

	if err != nil {
		log.Printf("📶 Failed to connect to %q: %v", ssid, err)
		return &ConnectionResult{
			Success: false,
			Message: stringPtr(fmt.Sprintf("Failed to connect: %v", err)),
			Mode:    ModeClient,
		}, nil
	}

	log.Printf("📶 Connected to %q", ssid)
	return &ConnectionResult{
		Success: true,
		Message: stringPtr(fmt.Sprintf("Connected to %s", ssid)),
		Mode:    ModeClient,
	}, nil
}

// Provision stores credentials from the setup page, leaves AP mode and joins
// the network.
func (s *Service) Provision(ctx context.Context, ssid, password string) (*ConnectionResult, error) {
	if err := s.SaveCredentials(ctx, ssid, password); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.source = SourceStored
	s.mu.Unlock()

	s.StopAPMode()
	result, err := s.Connect(ctx, ssid, password)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		if apErr := s.StartAPMode(ctx); apErr != nil {
			log.Printf("📶 Failed to restart setup network: %v", apErr)
		}
		result.Mode = s.GetMode()
	}
	return result, nil
}

// StartAPMode brings up the open setup network for the configured timeout.
func (s *Service) StartAPMode(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.mode == ModeAP {
		s.mu.Unlock()
		return nil
	}
	if !s.supported {
		s.mu.Unlock()
		return errors.New("AP mode is only supported on Linux")
	}
	s.mode = ModeStartingAP

	var apErr error
	if err := s.createAPConnection(); err != nil {
		apErr = fmt.Errorf("create setup network: %w", err)
	} else if _, err := s.executor.Execute("nmcli", "connection", "up", APConnectionName); err != nil {
		apErr = fmt.Errorf("start setup network: %w", err)
	}
	if apErr != nil {
		s.mode = ModeClient
		s.lastErr = apErr
		s.mu.Unlock()
		s.notifyStatusChange()
		return apErr
	}

	s.mode = ModeAP
	s.apStartTime = time.Now()
	s.apConfig = &APConfig{
		SSID:           s.cfg.APSSID,
		IPAddress:      APIPAddress,
		TimeoutSeconds: int(s.cfg.APTimeout / time.Second),
	}
	s.startAPTimer()
	s.mu.Unlock()

	log.Printf("📶 Setup network %q up for %v at http://%s/setup", s.cfg.APSSID, s.cfg.APTimeout, APIPAddress)
	s.notifyStatusChange()
	return nil
}

// StopAPMode takes down the setup network. It is a no-op outside AP mode.
func (s *Service) StopAPMode() {
	s.mu.Lock()
	if s.mode != ModeAP {
		s.mu.Unlock()
		return
	}

	if s.apTimer != nil {
		s.apTimer.Stop()
		s.apTimer = nil
	}
	if _, err := s.executor.Execute("nmcli", "connection", "down", APConnectionName); err != nil {
		log.Printf("📶 Failed to stop setup network: %v", err)
	}
	s.apConfig = nil
	s.mode = ModeClient
	s.mu.Unlock()

	log.Printf("📶 Setup network stopped")
	s.notifyStatusChange()
}

// Close stops the AP timer and the setup network.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.StopAPMode()
}

// GetStatus returns the current Wi-Fi status.
func (s *Service) GetStatus(ctx context.Context) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked(), nil
}

// ScanNetworks lists visible networks for the setup page, strongest first
// and one entry per SSID.
func (s *Service) ScanNetworks(ctx context.Context) ([]Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.supported {
		return []Network{}, nil
	}

	s.mu.RLock()
	executor := s.executor
	s.mu.RUnlock()

	// Format: SSID:SIGNAL:SECURITY:IN-USE
	output, err := executor.Execute("nmcli", "-t", "-f", "SSID,SIGNAL,SECURITY,IN-USE", "device", "wifi", "list")
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}
	return parseNetworks(string(output)), nil
}

func parseNetworks(output string) []Network {
	networks := []Network{}
	index := make(map[string]int)

	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		// SSID may itself contain colons; the last three fields never do.
		parts := strings.Split(line, ":")
		if len(parts) < 4 {
			continue
		}
		n := len(parts)
		ssid := strings.Join(parts[:n-3], ":")
		if ssid == "" {
			continue
		}

		signal := 0
		_, _ = fmt.Sscanf(parts[n-3], "%d", &signal)
		network := Network{
			SSID:           ssid,
			SignalStrength: signal,
			Security:       parseSecurityType(parts[n-2]),
			InUse:          parts[n-1] == "*",
		}

		if i, ok := index[ssid]; ok {
			if network.SignalStrength > networks[i].SignalStrength {
				network.InUse = network.InUse || networks[i].InUse
				networks[i] = network
			}
			continue
		}
		index[ssid] = len(networks)
		networks = append(networks, network)
	}

	sort.SliceStable(networks, func(i, j int) bool {
		return networks[i].SignalStrength > networks[j].SignalStrength
	})
	return networks
}

// parseSecurityType converts an nmcli security string to SecurityType.
func parseSecurityType(security string) SecurityType {
	security = strings.ToUpper(security)
	switch {
	case strings.Contains(security, "WPA3"):
		return SecurityWPA3
	case strings.Contains(security, "WPA") && strings.Contains(security, "802.1X"):
		return SecurityWPAEAP
	case strings.Contains(security, "WPA"):
		return SecurityWPAPSK
	case strings.Contains(security, "WEP"):
		return SecurityWEP
	default:
		return SecurityOpen
	}
}

// Internal methods (callers hold s.mu)

func (s *Service) statusLocked() *Status {
	status := &Status{
		Available:        s.supported,
		Mode:             s.mode,
		CredentialSource: s.source,
	}
	if !s.supported {
		status.Mode = ModeUnavailable
		return status
	}
	if s.lastErr != nil {
		status.LastError = stringPtr(s.lastErr.Error())
	}
	if s.apConfig != nil {
		ap := *s.apConfig
		remaining := s.cfg.APTimeout - time.Since(s.apStartTime)
		if remaining < 0 {
			remaining = 0
		}
		ap.SecondsRemaining = int(remaining / time.Second)
		status.APConfig = &ap
	}
	if s.mode == ModeClient {
		s.fillClientStatus(status)
	}
	return status
}

func (s *Service) fillClientStatus(status *Status) {
	output, err := s.executor.Execute("nmcli", "-t", "-f", "GENERAL.STATE,GENERAL.CONNECTION,IP4.ADDRESS", "device", "show", s.cfg.Interface)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(output), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch {
		case key == "GENERAL.STATE":
			// e.g. "100 (connected)"
			status.Connected = strings.Contains(value, "(connected)")
		case key == "GENERAL.CONNECTION" && value != "" && value != "--":
			ssid := value
			status.SSID = &ssid
		case strings.HasPrefix(key, "IP4.ADDRESS") && status.IPAddress == nil:
			ip, _, _ := strings.Cut(value, "/")
			status.IPAddress = &ip
		}
	}
}

func (s *Service) createAPConnection() error {
	// An existing profile is reused as-is.
	if output, err := s.executor.Execute("nmcli", "connection", "show", APConnectionName); err == nil && len(output) > 0 {
		return nil
	}

	args := []string{
		"connection", "add",
		"type", "wifi",
		"ifname", s.cfg.Interface,
		"con-name", APConnectionName,
		"autoconnect", "no",
		"ssid", s.cfg.APSSID,
		"mode", "ap",
		"ipv4.method", "shared",
		"ipv4.addresses", APIPAddress + "/24",
	}
	_, err := s.executor.Execute("nmcli", args...)
	return err
}

func (s *Service) startAPTimer() {
	if s.apTimer != nil {
		s.apTimer.Stop()
	}
	s.apTimer = time.AfterFunc(s.cfg.APTimeout, s.onAPTimeout)
}

// onAPTimeout takes the setup network down and tries the known credentials
// again, which brings the setup network back if they still do not work.
func (s *Service) onAPTimeout() {
	log.Printf("📶 Setup network timed out after %v", s.cfg.APTimeout)
	s.StopAPMode()

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}
	if _, err := s.EnsureConnected(context.Background()); err != nil {
		log.Printf("📶 Reconnect after setup timeout failed: %v", err)
	}
}

func (s *Service) notifyStatusChange() {
	s.mu.RLock()
	callback := s.statusCallback
	var status *Status
	if callback != nil {
		status = s.statusLocked()
	}
	s.mu.RUnlock()

	if callback != nil {
		go callback(status)
	}
}

func stringPtr(s string) *string {
	return &s
}
