package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/recykl/fleet-registry/internal/cache"
	"github.com/recykl/fleet-registry/internal/model"
	"github.com/recykl/fleet-registry/internal/queue"
	"github.com/recykl/fleet-registry/internal/repository"
)

// healthHistoryLen is how many recent samples a health report covers: the
// newest becomes `current`, the rest `history`.
const healthHistoryLen = 10

// DeviceStore is the slice of the device repository the handlers need.
type DeviceStore interface {
	Create(ctx context.Context, d model.Device) (model.Device, error)
	All(ctx context.Context) ([]model.Device, error)
	GetByID(ctx context.Context, id uint64) (model.Device, error)
	SetStatus(ctx context.Context, id uint64, status string) error
	Summary(ctx context.Context, limit, offset int) ([]model.SummaryRow, error)
	SummaryTotal(ctx context.Context) (int, error)
}

// TelemetryStore persists and reads back telemetry samples.
type TelemetryStore interface {
	Insert(ctx context.Context, s model.TelemetrySample) (model.TelemetrySample, error)
	RecentByDevice(ctx context.Context, deviceID uint64, n int) ([]model.TelemetrySample, error)
}

// AlertPublisher forwards non-healthy telemetry to the message broker.
// Publishing is best effort; handlers ignore returned errors.
type AlertPublisher interface {
	PublishTelemetryAlert(ctx context.Context, ev queue.TelemetryAlertEvent) error
}

// TelemetryPoint is the wire form of one sample inside a health report.
type TelemetryPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	CPU         float64   `json:"cpu"`
	Temperature float64   `json:"temperature"`
	Status      string    `json:"status"`
}

// HealthReport is the cached value of the health-history cache: the
// newest sample and up to nine older ones, newest first.
type HealthReport struct {
	Current TelemetryPoint   `json:"current"`
	History []TelemetryPoint `json:"history"`
}

// SummaryPage is the cached value of the summary cache.
type SummaryPage struct {
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Total int                `json:"total"`
	Data  []model.SummaryRow `json:"data"`
}

type healthResp struct {
	Cached bool `json:"cached"`
	HealthReport
}

type summaryResp struct {
	Cached bool `json:"cached"`
	SummaryPage
}

// DeviceHandler bundles the stores, the two injected caches and the alert
// publisher used by the device endpoints.  The caches are plain struct
// fields so tests construct isolated instances per case.
type DeviceHandler struct {
	Devices     DeviceStore
	Telemetry   TelemetryStore
	HealthCache *cache.Store[HealthReport]
	SummCache   *cache.Store[SummaryPage]
	Alerts      AlertPublisher
	Log         *zap.SugaredLogger
}

func NewDeviceHandler(devices DeviceStore, telemetry TelemetryStore,
	health *cache.Store[HealthReport], summary *cache.Store[SummaryPage],
	alerts AlertPublisher, log *zap.SugaredLogger) *DeviceHandler {
	return &DeviceHandler{
		Devices:     devices,
		Telemetry:   telemetry,
		HealthCache: health,
		SummCache:   summary,
		Alerts:      alerts,
		Log:         log,
	}
}

// ----- DTOs -----

type deviceReq struct {
	Type            string `json:"type"`
	Location        string `json:"location"`
	Status          string `json:"status"`
	Manufacturer    string `json:"manufacturer"`
	MACAddress      string `json:"macAddress"`
	FirmwareVersion string `json:"firmwareVersion"`
}

type telemetryReq struct {
	CPU         float64 `json:"cpu"`
	Temperature float64 `json:"temperature"`
	Status      string  `json:"status"`
}

// Register adds a device to the fleet.  Status is optional and defaults
// to active; registration deliberately bypasses every cache so a fresh
// fleet view only lags by the cache TTL.
func (h *DeviceHandler) Register(c echo.Context) error {
	var req deviceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status == "" {
		req.Status = model.StatusActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Devices.Create(ctx, model.Device{
		Type:            req.Type,
		Location:        req.Location,
		Status:          req.Status,
		Manufacturer:    req.Manufacturer,
		MACAddress:      req.MACAddress,
		FirmwareVersion: req.FirmwareVersion,
	})
	if err != nil {
		if errors.Is(err, repository.ErrMACExists) {
			return c.JSON(http.StatusConflict, echo.Map{"status": false, "error": "mac address already registered"})
		}
		h.Log.Errorw("device registration failed", "mac", req.MACAddress, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": false, "error": "Failed to register device"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"status":       true,
		"message":      fmt.Sprintf("New %s Device registered", d.Type),
		"addNewDevice": d,
	})
}

// All lists every registered device.  An empty fleet answers 404, which
// the dashboard uses to show its empty state.
func (h *DeviceHandler) All(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	devices, err := h.Devices.All(ctx)
	if err != nil {
		h.Log.Errorw("device list failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch devices"})
	}
	if len(devices) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "No devices found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"devices": devices})
}

// AddTelemetry records one sample for an existing device.  The device
// lookup runs first so nothing is inserted for unknown ids.  Non-healthy
// samples additionally raise an alert event; a broker failure never fails
// the request.
func (h *DeviceHandler) AddTelemetry(c echo.Context) error {
	id, err := deviceID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid device id"})
	}
	var req telemetryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	device, err := h.Devices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Device not found"})
		}
		h.Log.Errorw("device lookup failed", "device_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add telemetry data"})
	}

	sample, err := h.Telemetry.Insert(ctx, model.TelemetrySample{
		DeviceID:    id,
		Status:      req.Status,
		Temperature: req.Temperature,
		CPU:         req.CPU,
	})
	if err != nil {
		h.Log.Errorw("telemetry insert failed", "device_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add telemetry data"})
	}

	if sample.Status != model.HealthHealthy && h.Alerts != nil {
		ev := queue.TelemetryAlertEvent{
			DeviceID:    device.ID,
			DeviceType:  device.Type,
			Location:    device.Location,
			Status:      sample.Status,
			CPU:         sample.CPU,
			Temperature: sample.Temperature,
			RecordedAt:  sample.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := h.Alerts.PublishTelemetryAlert(ctx, ev); err != nil {
			h.Log.Warnw("telemetry alert publish failed", "device_id", id, "err", err)
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Telemetry data added",
		"newTelemetry": sample,
	})
}

// GetHealth returns the cached health report for a device.  On a miss the
// newest samples are fetched and split into current/history; a device
// with zero samples is 404 and the miss is never cached, so the first
// sample becomes visible immediately.
func (h *DeviceHandler) GetHealth(c echo.Context) error {
	id, err := deviceID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid device id"})
	}
	key := strconv.FormatUint(id, 10)

	if report, ok := h.HealthCache.Get(key); ok {
		return c.JSON(http.StatusOK, healthResp{Cached: true, HealthReport: report})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	samples, err := h.Telemetry.RecentByDevice(ctx, id, healthHistoryLen)
	if err != nil {
		h.Log.Errorw("health query failed", "device_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch health logs"})
	}
	if len(samples) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "No telemetry found for this device"})
	}

	points := make([]TelemetryPoint, 0, len(samples))
	for _, s := range samples {
		points = append(points, TelemetryPoint{
			Timestamp:   s.Timestamp,
			CPU:         s.CPU,
			Temperature: s.Temperature,
			Status:      s.Status,
		})
	}
	report := HealthReport{Current: points[0], History: points[1:]}
	h.HealthCache.Set(key, report)

	return c.JSON(http.StatusOK, healthResp{Cached: false, HealthReport: report})
}

// Decommission marks a device decommissioned.  The transition is terminal
// and idempotent: repeating it on an already decommissioned device still
// answers 200.  The flow bypasses all caches on purpose; it must act on
// fresh state.
func (h *DeviceHandler) Decommission(c echo.Context) error {
	id, err := deviceID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid device id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Devices.SetStatus(ctx, id, model.StatusDecommissioned); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Device not found"})
		}
		h.Log.Errorw("decommission failed", "device_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to decommission device"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("Device %d has been decommissioned", id),
	})
}

// GetSummary returns paginated device counts grouped by (type, location),
// cached per (page, limit) pair.
func (h *DeviceHandler) GetSummary(c echo.Context) error {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 10)
	key := fmt.Sprintf("%d-%d", page, limit)

	if cached, ok := h.SummCache.Get(key); ok {
		return c.JSON(http.StatusOK, summaryResp{Cached: true, SummaryPage: cached})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Devices.Summary(ctx, limit, (page-1)*limit)
	if err != nil {
		h.Log.Errorw("summary query failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch device summary"})
	}
	total, err := h.Devices.SummaryTotal(ctx)
	if err != nil {
		h.Log.Errorw("summary total query failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch device summary"})
	}
	if rows == nil {
		rows = []model.SummaryRow{}
	}

	pageData := SummaryPage{Page: page, Limit: limit, Total: total, Data: rows}
	h.SummCache.Set(key, pageData)

	return c.JSON(http.StatusOK, summaryResp{Cached: false, SummaryPage: pageData})
}

// ----- helpers -----

func deviceID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
