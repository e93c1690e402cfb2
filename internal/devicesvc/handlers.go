package devicesvc

import (
	"context"
	"errors"
	"net/http"

	"audience/internal/httpx"
	"audience/internal/metrics"
	"audience/internal/middleware"
	"audience/internal/models"
	"audience/internal/repo"
	"audience/internal/validation"

	"github.com/gorilla/mux"
)

// Store — то, что обработчикам нужно от хранилища устройств.
type Store interface {
	Create(ctx context.Context, d *models.Device) error
	Delete(ctx context.Context, deviceID string) error
	List(ctx context.Context) ([]models.Device, error)
}

type HTTP struct {
	store    Store
	validate *validation.Validator
	metrics  *metrics.Metrics
}

func NewHTTP(s Store, v *validation.Validator, m *metrics.Metrics) *HTTP {
	return &HTTP{store: s, validate: v, metrics: m}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/device/add", h.addDevice).Methods(http.MethodPost)
	// device_id may contain '/', mux matches on the decoded path
	r.HandleFunc("/device/delete/{device_id:.+}", h.deleteDevice).Methods(http.MethodDelete)
	r.HandleFunc("/devices", h.listDevices).Methods(http.MethodGet)
}

func (h *HTTP) addDevice(w http.ResponseWriter, r *http.Request) {
	p, err := validation.Decode(http.MaxBytesReader(w, r.Body, httpx.MaxBodyBytes))
	if err != nil {
		h.metrics.Rejected("device", "missing_body")
		httpx.Error(w, http.StatusBadRequest, "Missing body")
		return
	}
	in, err := h.validate.Device(p)
	if err != nil {
		h.metrics.Rejected("device", "invalid")
		httpx.Error(w, http.StatusUnprocessableEntity, "Invalid device data")
		return
	}

	d := &models.Device{DeviceID: in.DeviceID, Type: in.Type, User: in.User}
	if err := h.store.Create(r.Context(), d); err != nil {
		if errors.Is(err, repo.ErrDuplicateDevice) {
			h.metrics.DeviceConflict()
			httpx.Error(w, http.StatusConflict, "Device already exists")
			return
		}
		middleware.Log(r).WithError(err).Error("add device")
		httpx.Internal(w)
		return
	}

	h.metrics.DeviceAdded()
	middleware.Log(r).WithField("device_id", d.DeviceID).Info("device added")
	httpx.Message(w, http.StatusCreated, "Device added")
}

func (h *HTTP) deleteDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["device_id"]
	if err := h.store.Delete(r.Context(), id); err != nil {
		middleware.Log(r).WithError(err).WithField("device_id", id).Error("delete device")
		httpx.Internal(w)
		return
	}
	h.metrics.DeviceDeleted()
	httpx.Message(w, http.StatusOK, "Device deleted")
}

func (h *HTTP) listDevices(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.List(r.Context())
	if err != nil {
		middleware.Log(r).WithError(err).Error("list devices")
		httpx.Internal(w)
		return
	}
	if ds == nil {
		ds = []models.Device{}
	}
	httpx.JSON(w, http.StatusOK, ds)
}
