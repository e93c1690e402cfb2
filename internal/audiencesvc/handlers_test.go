package audiencesvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"audience/internal/db"
	"audience/internal/metrics"
	"audience/internal/models"
	"audience/internal/repo"
	"audience/internal/validation"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router   *mux.Router
	audience *repo.AudienceStore
	devices  *repo.DeviceStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gdb, err := db.Open("sqlite", filepath.Join(t.TempDir(), "audience.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, db.Migrate(gdb, false))

	f := fixture{
		router:   mux.NewRouter(),
		audience: repo.NewAudienceStore(gdb),
		devices:  repo.NewDeviceStore(gdb),
	}
	NewHTTP(f.audience, validation.New(), metrics.New()).
		WithSimulation(f.devices, NewSimulator(rand.New(rand.NewPCG(1, 1)), nil)).
		RegisterRoutes(f.router)
	return f
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func (f fixture) count(t *testing.T) int64 {
	t.Helper()
	n, err := f.audience.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestAddAudience(t *testing.T) {
	f := newFixture(t)

	rec := do(f.router, http.MethodPost, "/audience/add",
		`{"device_id":"d1","screen_time":12.5,"volume":40,"ts":"2024-01-01T10:00:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"Audience added"}`, rec.Body.String())

	rec = do(f.router, http.MethodGet, "/audience", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`[{"device_id":"d1","ts":"2024-01-01T10:00:00","screen_time":12.5,"volume":40}]`,
		rec.Body.String())
}

func TestAddAudience_GeneratesTimestamp(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated,
		do(f.router, http.MethodPost, "/audience/add", `{"device_id":"d1","screen_time":3,"volume":7}`).Code)

	var out []models.AudienceRecord
	require.NoError(t, json.Unmarshal(do(f.router, http.MethodGet, "/audience", "").Body.Bytes(), &out))
	require.Len(t, out, 1)
	_, err := validation.ParseTimestamp(out[0].TS)
	assert.NoError(t, err, out[0].TS)
}

func TestAddAudience_RejectedWithoutInsert(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		body string
		code int
	}{
		{"", http.StatusBadRequest},
		{"{}", http.StatusBadRequest},
		{`{"screen_time":1,"volume":1}`, http.StatusUnprocessableEntity},
		{`{"device_id":"d1","volume":1}`, http.StatusUnprocessableEntity},
		{`{"device_id":"d1","screen_time":1}`, http.StatusUnprocessableEntity},
		{`{"device_id":"d1","screen_time":-1,"volume":50}`, http.StatusUnprocessableEntity},
		{`{"device_id":"d1","screen_time":1,"volume":101}`, http.StatusUnprocessableEntity},
		{`{"device_id":"d1","screen_time":1,"volume":-5}`, http.StatusUnprocessableEntity},
		{`{"device_id":"d1","screen_time":1,"volume":true}`, http.StatusUnprocessableEntity},
		{`{"device_id":"d1","screen_time":1,"volume":1,"ts":"not a date"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		rec := do(f.router, http.MethodPost, "/audience/add", tc.body)
		assert.Equal(t, tc.code, rec.Code, tc.body)
		if tc.code == http.StatusUnprocessableEntity {
			assert.JSONEq(t, `{"error":"Invalid data format"}`, rec.Body.String())
		}
	}
	assert.Zero(t, f.count(t))
}

func TestListAudience_RecentWindow(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 60; i++ {
		body := fmt.Sprintf(`{"device_id":"d%d","screen_time":%d,"volume":%d}`, i, i, i%101)
		require.Equal(t, http.StatusCreated, do(f.router, http.MethodPost, "/audience/add", body).Code)
	}

	var out []models.AudienceRecord
	require.NoError(t, json.Unmarshal(do(f.router, http.MethodGet, "/audience", "").Body.Bytes(), &out))
	require.Len(t, out, 50)
	for i, rec := range out {
		assert.Equal(t, fmt.Sprintf("d%d", 59-i), rec.DeviceID)
	}
}

func TestListAudience_EmptyArray(t *testing.T) {
	f := newFixture(t)
	assert.JSONEq(t, `[]`, do(f.router, http.MethodGet, "/audience", "").Body.String())
}

func TestDeviceData(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.devices.Create(context.Background(), &models.Device{DeviceID: "d1", Type: "tv", User: "alice"}))

	rec := do(f.router, http.MethodGet, "/device/data/d1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sample models.AudienceRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sample))
	assert.Equal(t, "d1", sample.DeviceID)
	assert.GreaterOrEqual(t, sample.ScreenTime, 1.0)
	assert.LessOrEqual(t, sample.ScreenTime, 60.0)
	assert.GreaterOrEqual(t, sample.Volume, 0)
	assert.LessOrEqual(t, sample.Volume, 100)

	// the sample is persisted
	var listed []models.AudienceRecord
	require.NoError(t, json.Unmarshal(do(f.router, http.MethodGet, "/audience", "").Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, sample, listed[0])
}

func TestDeviceData_SlashInID(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.devices.Create(context.Background(), &models.Device{DeviceID: "room/tv", Type: "tv", User: "alice"}))

	rec := do(f.router, http.MethodGet, "/device/data/room%2Ftv", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sample models.AudienceRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sample))
	assert.Equal(t, "room/tv", sample.DeviceID)
	assert.EqualValues(t, 1, f.count(t))
}

func TestDeviceData_UnknownDevice(t *testing.T) {
	f := newFixture(t)
	rec := do(f.router, http.MethodGet, "/device/data/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Device not found"}`, rec.Body.String())
	assert.Zero(t, f.count(t))
}

func TestDeviceData_DisabledWithoutSimulation(t *testing.T) {
	r := mux.NewRouter()
	NewHTTP(nil, validation.New(), nil).RegisterRoutes(r)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/device/data/d1", "").Code)
}

type brokenStore struct{}

func (brokenStore) Create(context.Context, *models.AudienceRecord) error { return errors.New("boom") }
func (brokenStore) Recent(context.Context, int) ([]models.AudienceRecord, error) {
	return nil, errors.New("boom")
}

type brokenLookup struct{}

func (brokenLookup) Exists(context.Context, string) (bool, error) { return false, errors.New("boom") }

func TestStorageFailureIsInternal(t *testing.T) {
	r := mux.NewRouter()
	NewHTTP(brokenStore{}, validation.New(), nil).
		WithSimulation(brokenLookup{}, NewSimulator(nil, nil)).
		RegisterRoutes(r)

	for _, rec := range []*httptest.ResponseRecorder{
		do(r, http.MethodPost, "/audience/add", `{"device_id":"d1","screen_time":1,"volume":1}`),
		do(r, http.MethodGet, "/audience", ""),
		do(r, http.MethodGet, "/device/data/d1", ""),
	} {
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Internal error"}`, rec.Body.String())
	}
}
