// Package api serves the sectional's status, settings and Wi-Fi setup HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/bbernstein/ledsectional/internal/database/models"
	"github.com/bbernstein/ledsectional/internal/database/repositories"
	"github.com/bbernstein/ledsectional/internal/mapconfig"
	"github.com/bbernstein/ledsectional/internal/services/network"
	"github.com/bbernstein/ledsectional/internal/services/pubsub"
	"github.com/bbernstein/ledsectional/internal/services/sectional"
	"github.com/bbernstein/ledsectional/internal/services/wifi"
)

const (
	// MaxCycleLimit caps the number of cycles a single request may return.
	MaxCycleLimit = 500
	// RequestTimeout bounds every route except the websocket stream.
	RequestTimeout = 60 * time.Second
)

var validate = validator.New()

// DisplayController is the part of the sectional runner the API drives.
type DisplayController interface {
	Snapshot() sectional.Snapshot
	SetBrightness(brightness uint8)
}

// SettingStore persists user-adjustable settings.
type SettingStore interface {
	SetInt(ctx context.Context, key string, value int) error
}

// CycleStore reads fetch cycle history.
type CycleStore interface {
	FindRecent(ctx context.Context, limit int) ([]models.FetchCycle, error)
}

// WiFiController is the part of the Wi-Fi service the API drives.
type WiFiController interface {
	GetStatus(ctx context.Context) (*wifi.Status, error)
	ScanNetworks(ctx context.Context) ([]wifi.Network, error)
	Provision(ctx context.Context, ssid, password string) (*wifi.ConnectionResult, error)
}

// Deps are the services behind the API. WiFi and PubSub may be nil.
type Deps struct {
	Display  DisplayController
	Map      *mapconfig.Config
	Settings SettingStore
	Cycles   CycleStore
	WiFi     WiFiController
	PubSub   *pubsub.PubSub
	Version  string
}

// Handler serves the HTTP API.
type Handler struct {
	deps    Deps
	started time.Time

	// provisionCtx outlives the request that starts provisioning.
	provisionCtx context.Context
}

// New creates a Handler.
func New(deps Deps) *Handler {
	return &Handler{
		deps:         deps,
		started:      time.Now(),
		provisionCtx: context.Background(),
	}
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(RequestTimeout))

		r.Get("/health", h.health)

		r.Route("/api", func(r chi.Router) {
			r.Get("/display", h.getDisplay)
			r.Get("/airports", h.getAirports)
			r.Put("/brightness", h.putBrightness)
			r.Get("/cycles", h.getCycles)
			r.Get("/wifi", h.getWiFi)
			r.Get("/interfaces", h.getInterfaces)
		})

		r.Get("/setup", h.getSetup)
		r.Post("/setup/connect", h.postSetupConnect)
	})

	r.Get("/ws", h.serveWebSocket)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.deps.Version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *Handler) getDisplay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Display.Snapshot())
}

// AirportSlot is one configured LED position.
type AirportSlot struct {
	Index int    `json:"index"`
	Code  string `json:"code"`
	Kind  string `json:"kind"`
}

func (h *Handler) getAirports(w http.ResponseWriter, r *http.Request) {
	slots := make([]AirportSlot, 0, h.deps.Map.AirportCount())
	for i, a := range h.deps.Map.Airports {
		slots = append(slots, AirportSlot{Index: i, Code: a.Code, Kind: a.Kind.String()})
	}
	writeJSON(w, http.StatusOK, slots)
}

type brightnessRequest struct {
	Brightness *int `json:"brightness" validate:"required"`
}

func (h *Handler) putBrightness(w http.ResponseWriter, r *http.Request) {
	var req brightnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "brightness is required")
		return
	}

	brightness := *req.Brightness
	if brightness < 0 {
		brightness = 0
	}
	if brightness > 255 {
		brightness = 255
	}

	if err := h.deps.Settings.SetInt(r.Context(), models.SettingBrightness, brightness); err != nil {
		log.Printf("Failed to save brightness: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to save brightness")
		return
	}
	h.deps.Display.SetBrightness(uint8(brightness))
	log.Printf("💡 Brightness set to %d", brightness)

	writeJSON(w, http.StatusOK, map[string]int{"brightness": brightness})
}

type cyclesQuery struct {
	Limit int `validate:"min=1,max=500"`
}

func (h *Handler) getCycles(w http.ResponseWriter, r *http.Request) {
	q := cyclesQuery{Limit: repositories.DefaultCycleLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = limit
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(MaxCycleLimit))
		return
	}

	cycles, err := h.deps.Cycles.FindRecent(r.Context(), q.Limit)
	if err != nil {
		log.Printf("Failed to load fetch cycles: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load fetch cycles")
		return
	}
	writeJSON(w, http.StatusOK, toCycleResponses(cycles))
}

// CycleResponse is the JSON form of a fetch cycle.
type CycleResponse struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"startedAt"`
	DurationMs     int64     `json:"durationMs"`
	Success        bool      `json:"success"`
	StationCount   int       `json:"stationCount"`
	ReportCount    int       `json:"reportCount"`
	LightningCount int       `json:"lightningCount"`
	Error          *string   `json:"error,omitempty"`
}

func toCycleResponses(cycles []models.FetchCycle) []CycleResponse {
	out := make([]CycleResponse, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, CycleResponse{
			ID:             c.ID,
			StartedAt:      c.StartedAt,
			DurationMs:     c.DurationMs,
			Success:        c.Success,
			StationCount:   c.StationCount,
			ReportCount:    c.ReportCount,
			LightningCount: c.LightningCount,
			Error:          c.Error,
		})
	}
	return out
}

func (h *Handler) getWiFi(w http.ResponseWriter, r *http.Request) {
	if h.deps.WiFi == nil {
		writeJSON(w, http.StatusOK, &wifi.Status{Mode: wifi.ModeUnavailable, CredentialSource: wifi.SourceNone})
		return
	}
	status, err := h.deps.WiFi.GetStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read Wi-Fi status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) getInterfaces(w http.ResponseWriter, r *http.Request) {
	options, err := network.GetNetworkInterfaces()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list network interfaces")
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
