package basemap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/OCAP2/sceneeditor/internal/geo"
	"github.com/OCAP2/sceneeditor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScene() *core.Scene {
	return &core.Scene{
		Name:         "rome",
		CenterLat:    41.9,
		CenterLon:    12.5,
		UTMZone:      33,
		RadiusMeters: 250,
	}
}

const overpassBody = `{
  "elements": [
    {"type": "way", "id": 1, "tags": {"building": "yes"},
     "geometry": [{"lat": 41.9, "lon": 12.5}, {"lat": 41.9001, "lon": 12.5}, {"lat": 41.9001, "lon": 12.5001}]},
    {"type": "way", "id": 2, "tags": {"highway": "primary"},
     "geometry": [{"lat": 41.9, "lon": 12.5}, {"lat": 41.901, "lon": 12.5}]},
    {"type": "way", "id": 3, "tags": {"highway": "footway"},
     "geometry": [{"lat": 41.9, "lon": 12.5}, {"lat": 41.9, "lon": 12.5}]},
    {"type": "node", "id": 4, "tags": {"building": "yes"}}
  ]
}`

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", 0)
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
}

func TestQuery(t *testing.T) {
	q := Query(testScene(), 25*time.Second)
	assert.Equal(t, `[out:json][timeout:25];(way["building"](around:250,41.9,12.5);way["highway"](around:250,41.9,12.5););out geom;`, q)
}

func TestFetch_Success(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/interpreter", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		b, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(b))
		assert.NoError(t, err)
		gotQuery = form.Get("data")
		_, _ = w.Write([]byte(overpassBody))
	}))
	defer server.Close()

	res, err := New(server.URL, 5*time.Second).Fetch(context.Background(), testScene())
	require.NoError(t, err)
	assert.Contains(t, gotQuery, `way["building"](around:250,41.9,12.5)`)

	require.Len(t, res.Buildings, 1)
	assert.Equal(t, "1", res.Buildings[0].ID)
	assert.Equal(t, "yes", res.Buildings[0].Type)
	assert.Len(t, res.Buildings[0].Points, 3)

	require.Len(t, res.Roads, 1, "zero-length road dropped")
	assert.Equal(t, "primary", res.Roads[0].Type)
	assert.InDelta(t, 111, geo.FeatureLength(res.Roads[0]), 2)
}

func TestFetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).Fetch(context.Background(), testScene())
	assert.ErrorContains(t, err, "429")
}

func TestFetch_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).Fetch(context.Background(), testScene())
	assert.Error(t, err)
}

func TestFetch_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(overpassBody))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(server.URL, time.Second).Fetch(ctx, testScene())
	assert.Error(t, err)
}

func TestHealthcheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	assert.NoError(t, New(server.URL, time.Second).Healthcheck(context.Background()))
	assert.Error(t, New("http://localhost:59999", time.Second).Healthcheck(context.Background()))
}
