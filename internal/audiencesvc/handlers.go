package audiencesvc

import (
	"context"
	"net/http"

	"audience/internal/httpx"
	"audience/internal/metrics"
	"audience/internal/middleware"
	"audience/internal/models"
	"audience/internal/repo"
	"audience/internal/validation"

	"github.com/gorilla/mux"
)

type Store interface {
	Create(ctx context.Context, rec *models.AudienceRecord) error
	Recent(ctx context.Context, limit int) ([]models.AudienceRecord, error)
}

// DeviceLookup проверяет, что устройство зарегистрировано (для симуляции).
type DeviceLookup interface {
	Exists(ctx context.Context, deviceID string) (bool, error)
}

type HTTP struct {
	store    Store
	validate *validation.Validator
	metrics  *metrics.Metrics

	// опционально: GET /device/data/{device_id}
	devices DeviceLookup
	sim     *Simulator
}

func NewHTTP(s Store, v *validation.Validator, m *metrics.Metrics) *HTTP {
	return &HTTP{store: s, validate: v, metrics: m}
}

// WithSimulation enables GET /device/data/{device_id}.
func (h *HTTP) WithSimulation(devices DeviceLookup, sim *Simulator) *HTTP {
	h.devices = devices
	h.sim = sim
	return h
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/audience/add", h.addAudience).Methods(http.MethodPost)
	r.HandleFunc("/audience", h.listAudience).Methods(http.MethodGet)
	if h.devices != nil && h.sim != nil {
		r.HandleFunc("/device/data/{device_id:.+}", h.deviceData).Methods(http.MethodGet)
	}
}

func (h *HTTP) addAudience(w http.ResponseWriter, r *http.Request) {
	p, err := validation.Decode(http.MaxBytesReader(w, r.Body, httpx.MaxBodyBytes))
	if err != nil {
		h.metrics.Rejected("audience", "missing_body")
		httpx.Error(w, http.StatusBadRequest, "Missing body")
		return
	}
	in, err := h.validate.Audience(p)
	if err != nil {
		h.metrics.Rejected("audience", "invalid")
		httpx.Error(w, http.StatusUnprocessableEntity, "Invalid data format")
		return
	}

	rec := &models.AudienceRecord{
		DeviceID:   in.DeviceID,
		TS:         in.TS,
		ScreenTime: in.ScreenTime,
		Volume:     in.Volume,
	}
	if err := h.store.Create(r.Context(), rec); err != nil {
		middleware.Log(r).WithError(err).Error("add audience record")
		httpx.Internal(w)
		return
	}

	h.metrics.AudienceAdded(metrics.SourceAPI)
	httpx.Message(w, http.StatusCreated, "Audience added")
}

func (h *HTTP) listAudience(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.Recent(r.Context(), repo.RecentLimit)
	if err != nil {
		middleware.Log(r).WithError(err).Error("list audience records")
		httpx.Internal(w)
		return
	}
	if recs == nil {
		recs = []models.AudienceRecord{}
	}
	httpx.JSON(w, http.StatusOK, recs)
}

func (h *HTTP) deviceData(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["device_id"]
	ok, err := h.devices.Exists(r.Context(), id)
	if err != nil {
		middleware.Log(r).WithError(err).WithField("device_id", id).Error("lookup device")
		httpx.Internal(w)
		return
	}
	if !ok {
		httpx.Error(w, http.StatusNotFound, "Device not found")
		return
	}

	rec := h.sim.Sample(id)
	if err := h.store.Create(r.Context(), &rec); err != nil {
		middleware.Log(r).WithError(err).WithField("device_id", id).Error("store simulated sample")
		httpx.Internal(w)
		return
	}
	h.metrics.AudienceAdded(metrics.SourceSimulated)
	httpx.JSON(w, http.StatusOK, rec)
}
