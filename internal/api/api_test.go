package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/ledsectional/internal/database/models"
	"github.com/bbernstein/ledsectional/internal/led"
	"github.com/bbernstein/ledsectional/internal/mapconfig"
	"github.com/bbernstein/ledsectional/internal/services/network"
	"github.com/bbernstein/ledsectional/internal/services/pubsub"
	"github.com/bbernstein/ledsectional/internal/services/sectional"
	"github.com/bbernstein/ledsectional/internal/services/testutil"
	"github.com/bbernstein/ledsectional/internal/services/wifi"
)

type fakeDisplay struct {
	mu         sync.Mutex
	snapshot   sectional.Snapshot
	brightness []uint8
}

func (f *fakeDisplay) Snapshot() sectional.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeDisplay) SetBrightness(b uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brightness = append(f.brightness, b)
	f.snapshot.Brightness = b
}

func (f *fakeDisplay) lastBrightness() []uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint8(nil), f.brightness...)
}

type provisionCall struct {
	ssid, password string
}

type fakeWiFi struct {
	mu       sync.Mutex
	status   *wifi.Status
	networks []wifi.Network
	scanErr  error
	calls    []provisionCall
}

func (f *fakeWiFi) GetStatus(context.Context) (*wifi.Status, error) {
	return f.status, nil
}

func (f *fakeWiFi) ScanNetworks(context.Context) ([]wifi.Network, error) {
	return f.networks, f.scanErr
}

func (f *fakeWiFi) Provision(_ context.Context, ssid, password string) (*wifi.ConnectionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, provisionCall{ssid, password})
	return &wifi.ConnectionResult{Success: true, Mode: wifi.ModeClient}, nil
}

func (f *fakeWiFi) provisioned() []provisionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provisionCall(nil), f.calls...)
}

type harness struct {
	server  *httptest.Server
	display *fakeDisplay
	wifi    *fakeWiFi
	db      *testutil.TestDB
	ps      *pubsub.PubSub
}

func newHarness(t *testing.T, withWiFi bool) *harness {
	t.Helper()

	testDB, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	mapCfg, err := mapconfig.Parse(`
[settings]
brightness = 200

[[airports]]
code = "KSFO"

[[airports]]
code = "LTNG"

[[airports]]
code = "NULL"
`)
	require.NoError(t, err)

	f := &harness{
		display: &fakeDisplay{snapshot: sectional.Snapshot{
			Sequence:   7,
			Frame:      []led.Color{led.ColorVFR, led.ColorUnknown, led.ColorUnknown},
			Buffer:     []led.Color{led.ColorVFR, led.ColorUnknown, led.ColorUnknown},
			Lightning:  []int{},
			Brightness: 200,
			Phase:      "IDLE",
		}},
		db: testDB,
		ps: pubsub.New(),
	}

	deps := Deps{
		Display:  f.display,
		Map:      mapCfg,
		Settings: testDB.SettingRepo,
		Cycles:   testDB.CycleRepo,
		PubSub:   f.ps,
		Version:  "test",
	}
	if withWiFi {
		ssid := "home"
		f.wifi = &fakeWiFi{
			status: &wifi.Status{Available: true, Connected: true, Mode: wifi.ModeClient, SSID: &ssid, CredentialSource: wifi.SourceStored},
			networks: []wifi.Network{
				{SSID: "home", SignalStrength: 80, Security: wifi.SecurityWPAPSK},
				{SSID: "cafe", SignalStrength: 40, Security: wifi.SecurityOpen},
			},
		}
		deps.WiFi = f.wifi
	}

	router := chi.NewRouter()
	New(deps).Routes(router)
	f.server = httptest.NewServer(router)
	t.Cleanup(f.server.Close)
	return f
}

func (f *harness) do(t *testing.T, method, path, reqBody, contentType string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(reqBody))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealth(t *testing.T) {
	f := newHarness(t, false)
	resp, body := f.do(t, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]string
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, "test", got["version"])
	assert.NotEmpty(t, got["uptime"])
}

func TestGetDisplay(t *testing.T) {
	f := newHarness(t, false)
	resp, body := f.do(t, http.MethodGet, "/api/display", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got sectional.Snapshot
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, uint64(7), got.Sequence)
	assert.Equal(t, uint8(200), got.Brightness)
	assert.Equal(t, []led.Color{led.ColorVFR, led.ColorUnknown, led.ColorUnknown}, got.Frame)
}

func TestGetAirports(t *testing.T) {
	f := newHarness(t, false)
	resp, body := f.do(t, http.MethodGet, "/api/airports", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []AirportSlot
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []AirportSlot{
		{Index: 0, Code: "KSFO", Kind: "STATION"},
		{Index: 1, Code: "LTNG", Kind: "LTNG"},
		{Index: 2, Code: "NULL", Kind: "NULL"},
	}, got)
}

func TestPutBrightness(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       int
	}{
		{"in range", `{"brightness": 42}`, http.StatusOK, 42},
		{"zero", `{"brightness": 0}`, http.StatusOK, 0},
		{"clamped high", `{"brightness": 999}`, http.StatusOK, 255},
		{"clamped low", `{"brightness": -5}`, http.StatusOK, 0},
		{"missing field", `{}`, http.StatusBadRequest, -1},
		{"not json", `bright`, http.StatusBadRequest, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHarness(t, false)
			resp, body := f.do(t, http.MethodPut, "/api/brightness", tt.body, "application/json")
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(body))

			stored, ok, err := f.db.SettingRepo.GetInt(context.Background(), models.SettingBrightness)
			require.NoError(t, err)

			if tt.want < 0 {
				assert.False(t, ok)
				assert.Empty(t, f.display.lastBrightness())
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, stored)
			assert.Equal(t, []uint8{uint8(tt.want)}, f.display.lastBrightness())

			var got map[string]int
			require.NoError(t, json.Unmarshal(body, &got))
			assert.Equal(t, tt.want, got["brightness"])
		})
	}
}

func TestGetCycles(t *testing.T) {
	f := newHarness(t, false)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := "fetch failed"
	for i := 0; i < 5; i++ {
		cycle := &models.FetchCycle{
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
			Success:      i != 4,
			StationCount: 3,
		}
		if i == 4 {
			cycle.Error = &msg
		}
		require.NoError(t, f.db.CycleRepo.Create(ctx, cycle))
	}

	resp, body := f.do(t, http.MethodGet, "/api/cycles?limit=2", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []CycleResponse
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.False(t, got[0].Success)
	require.NotNil(t, got[0].Error)
	assert.Equal(t, "fetch failed", *got[0].Error)
	assert.True(t, got[0].StartedAt.After(got[1].StartedAt))

	resp, body = f.do(t, http.MethodGet, "/api/cycles", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Len(t, got, 5)
}

func TestGetCycles_InvalidLimit(t *testing.T) {
	f := newHarness(t, false)
	for _, q := range []string{"limit=abc", "limit=0", "limit=501"} {
		resp, _ := f.do(t, http.MethodGet, "/api/cycles?"+q, "", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestGetWiFi(t *testing.T) {
	f := newHarness(t, true)
	resp, body := f.do(t, http.MethodGet, "/api/wifi", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got wifi.Status
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Connected)
	assert.Equal(t, wifi.ModeClient, got.Mode)
	require.NotNil(t, got.SSID)
	assert.Equal(t, "home", *got.SSID)
}

func TestGetWiFi_Unavailable(t *testing.T) {
	f := newHarness(t, false)
	resp, body := f.do(t, http.MethodGet, "/api/wifi", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got wifi.Status
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, wifi.ModeUnavailable, got.Mode)
	assert.False(t, got.Available)
}

func TestGetInterfaces(t *testing.T) {
	f := newHarness(t, false)
	resp, body := f.do(t, http.MethodGet, "/api/interfaces", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []network.InterfaceOption
	require.NoError(t, json.Unmarshal(body, &got))
	for _, option := range got {
		assert.NotEmpty(t, option.Name)
		assert.NotEmpty(t, option.Broadcast)
	}
}

func TestGetSetup_ListsNetworks(t *testing.T) {
	f := newHarness(t, true)
	resp, body := f.do(t, http.MethodGet, "/setup", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	page := string(body)
	assert.Contains(t, page, `<form method="post" action="/setup/connect">`)
	assert.Contains(t, page, `<option value="home">`)
	assert.Contains(t, page, `<option value="cafe">`)
	assert.Contains(t, page, "Mode: CLIENT")
}

func TestGetSetup_ScanFailureStillRenders(t *testing.T) {
	f := newHarness(t, true)
	f.wifi.scanErr = errors.New("radio busy")

	resp, body := f.do(t, http.MethodGet, "/setup", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `name="ssid"`)
}

func TestPostSetupConnect(t *testing.T) {
	f := newHarness(t, true)
	form := url.Values{"ssid": {"  home  "}, "password": {"hunter22"}}

	resp, body := f.do(t, http.MethodPost, "/setup/connect", form.Encode(), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Contains(t, string(body), "joining home")

	assert.Eventually(t, func() bool {
		return len(f.wifi.provisioned()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, provisionCall{"home", "hunter22"}, f.wifi.provisioned()[0])
}

func TestPostSetupConnect_Validation(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"missing ssid", url.Values{"password": {"hunter22"}}},
		{"blank ssid", url.Values{"ssid": {"   "}}},
		{"short passphrase", url.Values{"ssid": {"home"}, "password": {"short"}}},
		{"long ssid", url.Values{"ssid": {strings.Repeat("x", 33)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHarness(t, true)
			resp, body := f.do(t, http.MethodPost, "/setup/connect", tt.form.Encode(), "application/x-www-form-urlencoded")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), `class="error"`)
			assert.Empty(t, f.wifi.provisioned())
		})
	}
}

func TestPostSetupConnect_OpenNetwork(t *testing.T) {
	f := newHarness(t, true)
	form := url.Values{"ssid": {"cafe"}}

	resp, _ := f.do(t, http.MethodPost, "/setup/connect", form.Encode(), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Eventually(t, func() bool {
		calls := f.wifi.provisioned()
		return len(calls) == 1 && calls[0] == provisionCall{"cafe", ""}
	}, time.Second, 10*time.Millisecond)
}

func TestPostSetupConnect_NoWiFi(t *testing.T) {
	f := newHarness(t, false)
	form := url.Values{"ssid": {"home"}}
	resp, _ := f.do(t, http.MethodPost, "/setup/connect", form.Encode(), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebSocket_StreamsSnapshots(t *testing.T) {
	f := newHarness(t, false)
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first sectional.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, uint64(7), first.Sequence)

	require.Equal(t, 1, f.ps.SubscriberCount(pubsub.TopicDisplay))
	f.ps.Publish(pubsub.TopicDisplay, sectional.Snapshot{
		Sequence: 8,
		Frame:    []led.Color{led.ColorIFR},
	})

	var next sectional.Snapshot
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, uint64(8), next.Sequence)
	assert.Equal(t, []led.Color{led.ColorIFR}, next.Frame)
}

func TestWebSocket_UnsubscribesOnClose(t *testing.T) {
	f := newHarness(t, false)
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	var first sectional.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, 1, f.ps.SubscriberCount(pubsub.TopicDisplay))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return f.ps.SubscriberCount(pubsub.TopicDisplay) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
