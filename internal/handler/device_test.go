package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recykl/fleet-registry/internal/cache"
	"github.com/recykl/fleet-registry/internal/model"
	"github.com/recykl/fleet-registry/internal/queue"
	"github.com/recykl/fleet-registry/internal/repository"
)

// ----- in-memory store fakes -----

type fakeDeviceStore struct {
	devices map[uint64]model.Device
	nextID  uint64

	summaryCalls int
}

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{devices: map[uint64]model.Device{}, nextID: 1}
}

func (f *fakeDeviceStore) Create(_ context.Context, d model.Device) (model.Device, error) {
	for _, existing := range f.devices {
		if existing.MACAddress == d.MACAddress {
			return model.Device{}, repository.ErrMACExists
		}
	}
	d.ID = f.nextID
	f.nextID++
	d.RegisteredAt = time.Now().UTC()
	f.devices[d.ID] = d
	return d, nil
}

func (f *fakeDeviceStore) All(_ context.Context) ([]model.Device, error) {
	var out []model.Device
	for _, d := range f.devices {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDeviceStore) GetByID(_ context.Context, id uint64) (model.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return model.Device{}, repository.ErrNotFound
	}
	return d, nil
}

func (f *fakeDeviceStore) SetStatus(_ context.Context, id uint64, status string) error {
	d, ok := f.devices[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Status = status
	f.devices[id] = d
	return nil
}

func (f *fakeDeviceStore) Summary(_ context.Context, limit, offset int) ([]model.SummaryRow, error) {
	f.summaryCalls++
	counts := map[[2]string]int{}
	for _, d := range f.devices {
		counts[[2]string{d.Type, d.Location}]++
	}
	var rows []model.SummaryRow
	for k, n := range counts {
		rows = append(rows, model.SummaryRow{DeviceType: k[0], Region: k[1], Count: n})
	}
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeDeviceStore) SummaryTotal(_ context.Context) (int, error) {
	counts := map[[2]string]bool{}
	for _, d := range f.devices {
		counts[[2]string{d.Type, d.Location}] = true
	}
	return len(counts), nil
}

type fakeTelemetryStore struct {
	samples     map[uint64][]model.TelemetrySample
	nextID      uint64
	recentCalls int
}

func newFakeTelemetryStore() *fakeTelemetryStore {
	return &fakeTelemetryStore{samples: map[uint64][]model.TelemetrySample{}, nextID: 1}
}

func (f *fakeTelemetryStore) Insert(_ context.Context, s model.TelemetrySample) (model.TelemetrySample, error) {
	s.ID = f.nextID
	f.nextID++
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	f.samples[s.DeviceID] = append(f.samples[s.DeviceID], s)
	return s, nil
}

func (f *fakeTelemetryStore) RecentByDevice(_ context.Context, deviceID uint64, n int) ([]model.TelemetrySample, error) {
	f.recentCalls++
	all := f.samples[deviceID]
	var out []model.TelemetrySample
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- { // newest first
		out = append(out, all[i])
	}
	return out, nil
}

func (f *fakeTelemetryStore) count(deviceID uint64) int { return len(f.samples[deviceID]) }

type fakeAlertPublisher struct{ events []queue.TelemetryAlertEvent }

func (f *fakeAlertPublisher) PublishTelemetryAlert(_ context.Context, ev queue.TelemetryAlertEvent) error {
	f.events = append(f.events, ev)
	return nil
}

// ----- fixture -----

type deviceFixture struct {
	h         *DeviceHandler
	devices   *fakeDeviceStore
	telemetry *fakeTelemetryStore
	alerts    *fakeAlertPublisher
	health    *cache.Store[HealthReport]
	summary   *cache.Store[SummaryPage]
}

func newDeviceFixture(t *testing.T, healthTTL time.Duration) *deviceFixture {
	t.Helper()

	f := &deviceFixture{
		devices:   newFakeDeviceStore(),
		telemetry: newFakeTelemetryStore(),
		alerts:    &fakeAlertPublisher{},
		health:    cache.New[HealthReport](healthTTL, time.Hour),
		summary:   cache.New[SummaryPage](time.Minute, time.Hour),
	}
	t.Cleanup(f.health.Close)
	t.Cleanup(f.summary.Close)
	f.h = NewDeviceHandler(f.devices, f.telemetry, f.health, f.summary, f.alerts, zap.NewNop().Sugar())
	return f
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	require.NoError(t, h(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

// ----- tests -----

func TestDeviceRegister_DefaultsStatusActive(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	rec := doJSON(t, f.h.Register, http.MethodPost, "/devices/register",
		`{"type":"RVM","location":"Pune","manufacturer":"Acme","macAddress":"AA:BB:CC:DD:EE:FF","firmwareVersion":"1.0.0"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["status"])
	assert.Equal(t, "New RVM Device registered", body["message"])

	added := body["addNewDevice"].(map[string]any)
	assert.Equal(t, "active", added["status"])
	assert.NotZero(t, added["id"])
}

func TestDeviceRegister_KeepsExplicitStatus(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	rec := doJSON(t, f.h.Register, http.MethodPost, "/devices/register",
		`{"type":"RVM","location":"Pune","status":"deployed","manufacturer":"Acme","macAddress":"AA:BB:CC:DD:EE:01","firmwareVersion":"1.0.0"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	added := decode(t, rec)["addNewDevice"].(map[string]any)
	assert.Equal(t, "deployed", added["status"])
}

func TestDeviceRegister_DuplicateMACIs409(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	body := `{"type":"RVM","location":"Pune","manufacturer":"Acme","macAddress":"AA:BB:CC:DD:EE:FF","firmwareVersion":"1.0.0"}`
	doJSON(t, f.h.Register, http.MethodPost, "/devices/register", body, nil)
	rec := doJSON(t, f.h.Register, http.MethodPost, "/devices/register", body, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAllDevices_EmptyFleetIs404(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	rec := doJSON(t, f.h.All, http.MethodGet, "/devices/allDevices", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllDevices_ReturnsFleet(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	mustRegisterDevice(t, f, "RVM", "Pune", "AA:BB:CC:DD:EE:01")
	mustRegisterDevice(t, f, "RVM", "Kolkata", "AA:BB:CC:DD:EE:02")

	rec := doJSON(t, f.h.All, http.MethodGet, "/devices/allDevices", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	devices := decode(t, rec)["devices"].([]any)
	assert.Len(t, devices, 2)
}

func TestAddTelemetry_UnknownDeviceIs404AndNothingStored(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	rec := doJSON(t, f.h.AddTelemetry, http.MethodPost, "/devices/99/telemetry",
		`{"cpu":45,"temperature":60,"status":"healthy"}`, map[string]string{"id": "99"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, f.telemetry.count(99))
}

func TestAddTelemetry_StoresSample(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	id := mustRegisterDevice(t, f, "RVM", "Pune", "AA:BB:CC:DD:EE:01")

	rec := doJSON(t, f.h.AddTelemetry, http.MethodPost, "/devices/1/telemetry",
		`{"cpu":45,"temperature":60,"status":"healthy"}`, map[string]string{"id": strconv.FormatUint(id, 10)})

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Telemetry data added", body["message"])
	sample := body["newTelemetry"].(map[string]any)
	assert.Equal(t, float64(45), sample["cpu"])
	assert.Equal(t, 1, f.telemetry.count(id))
	assert.Empty(t, f.alerts.events, "healthy samples raise no alert")
}

func TestAddTelemetry_NonHealthyPublishesAlert(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	id := mustRegisterDevice(t, f, "RVM", "Pune", "AA:BB:CC:DD:EE:01")

	doJSON(t, f.h.AddTelemetry, http.MethodPost, "/devices/1/telemetry",
		`{"cpu":97,"temperature":88,"status":"critical"}`, map[string]string{"id": strconv.FormatUint(id, 10)})

	require.Len(t, f.alerts.events, 1)
	ev := f.alerts.events[0]
	assert.Equal(t, id, ev.DeviceID)
	assert.Equal(t, "critical", ev.Status)
	assert.Equal(t, "Pune", ev.Location)
}

func TestGetHealth_NoTelemetryIs404AndNotCached(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	id := mustRegisterDevice(t, f, "RVM", "Pune", "AA:BB:CC:DD:EE:01")
	params := map[string]string{"id": strconv.FormatUint(id, 10)}

	rec := doJSON(t, f.h.GetHealth, http.MethodGet, "/devices/1/health", "", params)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// No negative caching: the next call queries the store again.
	doJSON(t, f.h.GetHealth, http.MethodGet, "/devices/1/health", "", params)
	assert.Equal(t, 2, f.telemetry.recentCalls)
}

func TestGetHealth_CacheMissThenHit(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	id := mustRegisterDevice(t, f, "RVM", "Pune", "AA:BB:CC:DD:EE:01")
	params := map[string]string{"id": strconv.FormatUint(id, 10)}
	mustAddSample(t, f, id, 45, 60, "healthy")
	mustAddSample(t, f, id, 50, 61, "warning")

	first := doJSON(t, f.h.GetHealth, http.MethodGet, "/devices/1/health", "", params)
	require.Equal(t, http.StatusOK, first.Code)
	b1 := decode(t, first)
	assert.Equal(t, false, b1["cached"])

	current := b1["current"].(map[string]any)
	assert.Equal(t, float64(50), current["cpu"], "current is the newest sample")
	assert.Len(t, b1["history"].([]any), 1)

	second := doJSON(t, f.h.GetHealth, http.MethodGet, "/devices/1/health", "", params)
	b2 := decode(t, second)
	assert.Equal(t, true, b2["cached"])
	assert.Equal(t, b1["current"], b2["current"], "hit returns the identical payload")
	assert.Equal(t, b1["history"], b2["history"])
	assert.Equal(t, 1, f.telemetry.recentCalls, "hit does not re-query the store")
}

func TestGetHealth_SingleSampleHasEmptyHistory(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	id := mustRegisterDevice(t, f, "RVM", "Pune", "AA:BB:CC:DD:EE:FF")
	mustAddSample(t, f, id, 45, 60, "healthy")

	rec := doJSON(t, f.h.GetHealth, http.MethodGet, "/devices/1/health", "",
		map[string]string{"id": strconv.FormatUint(id, 10)})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["cached"])
	assert.Len(t, body["history"].([]any), 0)
	assert.NotNil(t, body["history"], "history serializes as [], not null")
}

func TestGetHealth_TTLExpiryRequeries(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, 30*time.Millisecond)
	id := mustRegisterDevice(t, f, "RVM", "Pune", "AA:BB:CC:DD:EE:01")
	params := map[string]string{"id": strconv.FormatUint(id, 10)}
	mustAddSample(t, f, id, 45, 60, "healthy")

	doJSON(t, f.h.GetHealth, http.MethodGet, "/devices/1/health", "", params)
	time.Sleep(50 * time.Millisecond)

	rec := doJSON(t, f.h.GetHealth, http.MethodGet, "/devices/1/health", "", params)
	body := decode(t, rec)
	assert.Equal(t, false, body["cached"], "expired entry forces a fresh query")
	assert.Equal(t, 2, f.telemetry.recentCalls)
}

func TestGetSummary_IndependentKeysAndStableTotal(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	mustRegisterDevice(t, f, "RVM XXL", "Kolkata", "AA:00:00:00:00:01")
	mustRegisterDevice(t, f, "RVM", "Bangalore", "AA:00:00:00:00:02")
	mustRegisterDevice(t, f, "Recycle Sensor", "Kolkata", "AA:00:00:00:00:03")

	one := decode(t, doJSON(t, f.h.GetSummary, http.MethodGet, "/devices/summary?page=1&limit=2", "", nil))
	assert.Equal(t, false, one["cached"])
	assert.Equal(t, float64(3), one["total"])
	assert.Len(t, one["data"].([]any), 2)

	two := decode(t, doJSON(t, f.h.GetSummary, http.MethodGet, "/devices/summary?page=2&limit=2", "", nil))
	assert.Equal(t, false, two["cached"], "distinct (page, limit) pairs are independent entries")
	assert.Equal(t, one["total"], two["total"], "total is stable across pages")
	assert.Len(t, two["data"].([]any), 1)

	again := decode(t, doJSON(t, f.h.GetSummary, http.MethodGet, "/devices/summary?page=1&limit=2", "", nil))
	assert.Equal(t, true, again["cached"])
	assert.Equal(t, 2, f.devices.summaryCalls, "repeat hit does not re-query")
}

func TestGetSummary_DefaultsAndEmptyFleet(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	body := decode(t, doJSON(t, f.h.GetSummary, http.MethodGet, "/devices/summary", "", nil))
	assert.Equal(t, float64(1), body["page"])
	assert.Equal(t, float64(10), body["limit"])
	assert.Equal(t, float64(0), body["total"])
	assert.NotNil(t, body["data"], "data serializes as [], not null")
}

func TestDecommission_UnknownDeviceIs404(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	rec := doJSON(t, f.h.Decommission, http.MethodPut, "/devices/7/decommission", "",
		map[string]string{"id": "7"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecommission_SetsTerminalStatusAndIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newDeviceFixture(t, time.Minute)
	id := mustRegisterDevice(t, f, "RVM", "Pune", "AA:BB:CC:DD:EE:01")
	params := map[string]string{"id": strconv.FormatUint(id, 10)}

	rec := doJSON(t, f.h.Decommission, http.MethodPut, "/devices/1/decommission", "", params)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Device 1 has been decommissioned", decode(t, rec)["message"])
	assert.Equal(t, model.StatusDecommissioned, f.devices.devices[id].Status)

	// Repeating the terminal transition still succeeds.
	rec = doJSON(t, f.h.Decommission, http.MethodPut, "/devices/1/decommission", "", params)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusDecommissioned, f.devices.devices[id].Status)
}

// ----- fixture helpers -----

func mustRegisterDevice(t *testing.T, f *deviceFixture, typ, location, mac string) uint64 {
	t.Helper()
	d, err := f.devices.Create(context.Background(), model.Device{
		Type: typ, Location: location, Status: model.StatusActive,
		Manufacturer: "Acme", MACAddress: mac, FirmwareVersion: "1.0.0",
	})
	require.NoError(t, err)
	return d.ID
}

func mustAddSample(t *testing.T, f *deviceFixture, deviceID uint64, cpu, temp float64, status string) {
	t.Helper()
	_, err := f.telemetry.Insert(context.Background(), model.TelemetrySample{
		DeviceID: deviceID, CPU: cpu, Temperature: temp, Status: status,
	})
	require.NoError(t, err)
}
