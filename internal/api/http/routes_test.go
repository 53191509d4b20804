package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sensor-assistant/internal/graph"
	"github.com/i474232898/sensor-assistant/internal/query"
	"github.com/i474232898/sensor-assistant/internal/sensor"
	"github.com/i474232898/sensor-assistant/internal/store"
)

func ptr(v float64) *float64 { return &v }

func newTestApp(t *testing.T, st sensor.Store) (*fiber.App, *query.Session) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	panel := graph.NewPanel(t.TempDir(), 8, 6, logger)
	session := query.NewSession(st, query.NewEngine(nil, panel, logger), logger, query.WithSource("sensor_data.json"))
	_ = session.Reload(context.Background())

	app := NewApp("sensor-assistant-test")
	RegisterRoutes(app, session, panel)
	return app, session
}

func seededStore() *store.MemoryStore {
	doc := sensor.Document{}
	doc.Put("2025-03-20", "10:00:00", sensor.Reading{Temperature: ptr(20), Humidity: ptr(60), AirQuality: ptr(12), LightIntensity: ptr(800)})
	doc.Put("2025-03-20", "10:05:00", sensor.Reading{Temperature: ptr(22), Humidity: ptr(62), AirQuality: ptr(14), LightIntensity: ptr(900)})
	doc.Put("2025-03-21", "09:00:00", sensor.Reading{Temperature: ptr(21)})
	return store.NewMemoryStoreFrom(doc)
}

func postQuery(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, seededStore())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

// TestQueryValidation verifies that the query endpoint rejects missing,
// blank-bodied and oversized queries.
func TestQueryValidation(t *testing.T) {
	app, _ := newTestApp(t, seededStore())

	bodies := []string{
		`{}`,
		`{"query": ""}`,
		`{"query": "` + strings.Repeat("a", 501) + `"}`,
		`not json`,
	}
	for _, body := range bodies {
		resp := postQuery(t, app, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %.20q: expected status %d, got %d", body, http.StatusBadRequest, resp.StatusCode)
		}
		var out map[string]any
		decode(t, resp, &out)
		if out["error"] != true {
			t.Fatalf("expected error envelope, got %v", out)
		}
	}
}

func TestQueryStatistic(t *testing.T) {
	app, _ := newTestApp(t, seededStore())

	resp := postQuery(t, app, `{"query": "what is the average temperature?"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var out queryResponse
	decode(t, resp, &out)
	if out.Response != "The average temperature is 21.0°C" {
		t.Fatalf("unexpected response %q", out.Response)
	}
	if out.Graph != "" || out.GraphURL != "" {
		t.Fatalf("expected no graph, got %+v", out)
	}
}

func TestQueryGraphThenFetch(t *testing.T) {
	app, _ := newTestApp(t, seededStore())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/graph", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d before any graph, got %d", http.StatusNotFound, resp.StatusCode)
	}

	resp = postQuery(t, app, `{"query": "graph temperature and humidity"}`)
	var out queryResponse
	decode(t, resp, &out)
	if out.Response != "Temperature (°C) and Humidity (%) graph generated!" {
		t.Fatalf("unexpected response %q", out.Response)
	}
	if out.GraphURL != graphRoute || out.Graph == "" {
		t.Fatalf("expected graph location, got %+v", out)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, out.GraphURL, nil), -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Fatalf("expected png body")
	}
}

func TestAverages(t *testing.T) {
	app, _ := newTestApp(t, seededStore())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/averages", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out struct {
		Dates    []string        `json:"dates"`
		Samples  int             `json:"samples"`
		Averages sensor.Averages `json:"averages"`
	}
	decode(t, resp, &out)
	if len(out.Dates) != 2 || out.Samples != 3 {
		t.Fatalf("unexpected coverage %+v", out)
	}
	if out.Averages.Temperature == nil || *out.Averages.Temperature != 21 {
		t.Fatalf("unexpected temperature average %v", out.Averages.Temperature)
	}
	if out.Averages.Humidity == nil || *out.Averages.Humidity != 61 {
		t.Fatalf("unexpected humidity average %v", out.Averages.Humidity)
	}
}

// TestReadingsByDate verifies date validation and the 404 for dates
// without readings.
func TestReadingsByDate(t *testing.T) {
	app, _ := newTestApp(t, seededStore())

	cases := []struct {
		url  string
		code int
	}{
		{"/api/v1/readings", http.StatusBadRequest},
		{"/api/v1/readings?date=20-03-2025", http.StatusBadRequest},
		{"/api/v1/readings?date=2025-01-01", http.StatusNotFound},
		{"/api/v1/readings?date=2025-03-20", http.StatusOK},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.url, nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != tc.code {
			t.Fatalf("%s: expected status %d, got %d", tc.url, tc.code, resp.StatusCode)
		}
	}

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/readings?date=2025-03-20", nil))
	var out struct {
		Readings []struct {
			Time        string   `json:"time"`
			Temperature *float64 `json:"temperature"`
		} `json:"readings"`
	}
	decode(t, resp, &out)
	if len(out.Readings) != 2 || out.Readings[0].Time != "10:00:00" || *out.Readings[1].Temperature != 22 {
		t.Fatalf("unexpected readings %+v", out.Readings)
	}
}

func TestQueryCarriesLoadNotices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor_data.json")
	st := store.NewFileStore(path)
	if err := st.Put(context.Background(), "2025-03-20", "10:00:00", sensor.Reading{Temperature: ptr(20)}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	app, session := newTestApp(t, st)

	var out queryResponse
	decode(t, postQuery(t, app, `{"query": "average temperature"}`), &out)
	if len(out.Notices) != 0 {
		t.Fatalf("expected no notices, got %v", out.Notices)
	}

	// A background reload hits a broken file.
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatalf("corrupt store: %v", err)
	}
	_ = session.Reload(context.Background())

	out = queryResponse{}
	decode(t, postQuery(t, app, `{"query": "average temperature"}`), &out)
	if len(out.Notices) != 1 || out.Notices[0] != "Error: Invalid JSON format in sensor data file" {
		t.Fatalf("unexpected notices %v", out.Notices)
	}
	if out.Response != "No valid temperature data" {
		t.Fatalf("unexpected response %q", out.Response)
	}

	// Each notice is delivered once.
	out = queryResponse{}
	decode(t, postQuery(t, app, `{"query": "average temperature"}`), &out)
	if len(out.Notices) != 0 {
		t.Fatalf("expected notices to be drained, got %v", out.Notices)
	}
}

func TestReloadReportsMissingStore(t *testing.T) {
	app, session := newTestApp(t, store.NewMemoryStore(0))
	// Drain the notice queued by the initial load.
	session.Notices()

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var out struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	decode(t, resp, &out)
	if out.OK || out.Error == "" {
		t.Fatalf("expected reload failure, got %+v", out)
	}
}
