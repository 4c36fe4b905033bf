// Package wifi joins the map to a Wi-Fi network and falls back to a setup
// access point when it cannot.
package wifi

import (
	"context"
	"time"

	"github.com/bbernstein/ledsectional/internal/database/models"
)

// Mode represents the current Wi-Fi operation mode.
type Mode string

const (
	// ModeClient indicates the device is joined to a network as a client.
	ModeClient Mode = "CLIENT"
	// ModeAP indicates the device is serving the setup access point.
	ModeAP Mode = "AP"
	// ModeConnecting indicates a connection attempt is in progress.
	ModeConnecting Mode = "CONNECTING"
	// ModeStartingAP indicates the setup access point is being brought up.
	ModeStartingAP Mode = "STARTING_AP"
	// ModeUnavailable indicates there is no Wi-Fi hardware to manage.
	ModeUnavailable Mode = "UNAVAILABLE"
)

// CredentialSource says where resolved credentials came from.
type CredentialSource string

const (
	SourceStored CredentialSource = "STORED"
	SourceConfig CredentialSource = "CONFIG"
	SourceNone   CredentialSource = "NONE"
)

// Credentials are the network name and passphrase to join.
type Credentials struct {
	SSID     string
	Password string
	Source   CredentialSource
}

// Present reports whether an SSID is available.
func (c Credentials) Present() bool {
	return c.SSID != ""
}

// APConfig describes the running setup access point.
type APConfig struct {
	SSID             string `json:"ssid"`
	IPAddress        string `json:"ipAddress"`
	TimeoutSeconds   int    `json:"timeoutSeconds"`
	SecondsRemaining int    `json:"secondsRemaining"`
}

// Status represents the current Wi-Fi status.
type Status struct {
	Available        bool             `json:"available"`
	Connected        bool             `json:"connected"`
	Mode             Mode             `json:"mode"`
	SSID             *string          `json:"ssid,omitempty"`
	IPAddress        *string          `json:"ipAddress,omitempty"`
	CredentialSource CredentialSource `json:"credentialSource"`
	APConfig         *APConfig        `json:"ap,omitempty"`
	LastError        *string          `json:"lastError,omitempty"`
}

// Network is a visible Wi-Fi network.
type Network struct {
	SSID           string       `json:"ssid"`
	SignalStrength int          `json:"signalStrength"`
	Security       SecurityType `json:"security"`
	InUse          bool         `json:"inUse"`
}

// SecurityType represents the security type of a Wi-Fi network.
type SecurityType string

const (
	SecurityOpen   SecurityType = "OPEN"
	SecurityWEP    SecurityType = "WEP"
	SecurityWPAPSK SecurityType = "WPA_PSK"
	SecurityWPAEAP SecurityType = "WPA_EAP"
	SecurityWPA3   SecurityType = "WPA3"
)

// ConnectionResult represents the result of a connection attempt.
type ConnectionResult struct {
	Success bool    `json:"success"`
	Message *string `json:"message,omitempty"`
	Mode    Mode    `json:"mode"`
}

// CommandExecutor runs shell commands (replaced in tests).
type CommandExecutor interface {
	Execute(name string, args ...string) ([]byte, error)
	ExecuteWithTimeout(timeout time.Duration, name string, args ...string) ([]byte, error)
}

// CredentialStore persists provisioned credentials.
type CredentialStore interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	Upsert(ctx context.Context, key, value string) (*models.Setting, error)
}
