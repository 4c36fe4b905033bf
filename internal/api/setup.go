package api

import (
	"embed"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/bbernstein/ledsectional/internal/services/wifi"
)

//go:embed templates/setup.html.tmpl
var templateFS embed.FS

var setupView = template.Must(template.New("setup.html.tmpl").ParseFS(templateFS, "templates/setup.html.tmpl"))

type setupPage struct {
	Version   string
	Status    *wifi.Status
	Networks  []wifi.Network
	Message   string
	Error     string
	Available bool
}

type connectForm struct {
	SSID     string `validate:"required,max=32"`
	Password string `validate:"omitempty,min=8,max=63"`
}

func (h *Handler) getSetup(w http.ResponseWriter, r *http.Request) {
	page := setupPage{Version: h.deps.Version}
	if h.deps.WiFi != nil {
		page.Available = true
		if status, err := h.deps.WiFi.GetStatus(r.Context()); err == nil {
			page.Status = status
			page.Available = status.Available
		}
		if networks, err := h.deps.WiFi.ScanNetworks(r.Context()); err == nil {
			page.Networks = networks
		} else {
			log.Printf("📶 Network scan failed: %v", err)
		}
	}
	h.renderSetup(w, http.StatusOK, page)
}

func (h *Handler) postSetupConnect(w http.ResponseWriter, r *http.Request) {
	if h.deps.WiFi == nil {
		h.renderSetup(w, http.StatusServiceUnavailable, setupPage{
			Version: h.deps.Version,
			Error:   "Wi-Fi management is not available on this device.",
		})
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderSetup(w, http.StatusBadRequest, setupPage{Version: h.deps.Version, Available: true, Error: "Could not read the form."})
		return
	}

	form := connectForm{
		SSID:     strings.TrimSpace(r.PostFormValue("ssid")),
		Password: r.PostFormValue("password"),
	}
	if err := validate.Struct(form); err != nil {
		h.renderSetup(w, http.StatusBadRequest, setupPage{
			Version:   h.deps.Version,
			Available: true,
			Error:     "Enter a network name and a passphrase of 8 to 63 characters, or leave the passphrase empty for an open network.",
		})
		return
	}

	// Joining the network tears down the setup access point this request
	// arrived on, so the answer goes out before provisioning starts.
	go func() {
		result, err := h.deps.WiFi.Provision(h.provisionCtx, form.SSID, form.Password)
		switch {
		case err != nil:
			log.Printf("📶 Provisioning failed: %v", err)
		case !result.Success:
			log.Printf("📶 Could not join %s, setup network restarted", form.SSID)
		default:
			log.Printf("📶 Joined %s", form.SSID)
		}
	}()

	h.renderSetup(w, http.StatusAccepted, setupPage{
		Version:   h.deps.Version,
		Available: true,
		Message:   "Saved. The map is joining " + form.SSID + ". If it cannot connect, the setup network will come back.",
	})
}

func (h *Handler) renderSetup(w http.ResponseWriter, status int, page setupPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := setupView.Execute(w, page); err != nil {
		log.Printf("Failed to render setup page: %v", err)
	}
}
