package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-mapeditor/pkg/store"
)

func TestNewServer_RequiresSessions(t *testing.T) {
	_, err := NewServer(Deps{}, Config{})
	assert.Error(t, err)
}

func TestOpenSession(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodPost, "/sessions", OpenSessionRequest{SystemID: "polder"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decode[map[string]any](t, rr)
	assert.Equal(t, "polder", resp["system_id"])
	assert.Equal(t, false, resp["dirty"])
	payload := resp["payload"].(map[string]any)
	assert.Len(t, payload["asset_list"], 3)
	assert.Len(t, payload["area_building_list"], 1)
	assert.Empty(t, payload["connection_list"])
	assert.Equal(t, 1, ts.sessions.Count())
}

func TestOpenSession_NewSystem(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodPost, "/sessions", OpenSessionRequest{SystemID: "fresh"})
	require.Equal(t, http.StatusCreated, rr.Code)

	payload := decode[map[string]any](t, rr)["payload"].(map[string]any)
	assert.Empty(t, payload["asset_list"])
	assert.Equal(t, []any{[]any{"Area", "fresh-area", "fresh", 0.0}}, payload["area_building_list"])
}

func TestOpenSession_Invalid(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"malformed", "{not json"},
		{"missing id", OpenSessionRequest{}},
		{"bad characters", OpenSessionRequest{SystemID: "../etc"}},
		{"unknown field", `{"system_id":"polder","extra":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(t, http.MethodPost, "/sessions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			resp := decode[ErrorResponse](t, rr)
			assert.Equal(t, ReasonInvalid, resp.Reason)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
	assert.Zero(t, ts.sessions.Count())
}

func TestOpenSession_CorruptDocument(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.docs.Put(context.Background(), "broken", []byte("<not-esdl")))

	rr := ts.do(t, http.MethodPost, "/sessions", OpenSessionRequest{SystemID: "broken"})
	assert.GreaterOrEqual(t, rr.Code, 400)
	assert.Zero(t, ts.sessions.Count())
}

func TestListAndGetSession(t *testing.T) {
	ts := setupTestServer(t)
	first := ts.open(t)
	second := ts.open(t)

	rr := ts.do(t, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[SessionListResponse](t, rr)
	require.Equal(t, 2, list.Count)
	assert.ElementsMatch(t, []string{first, second}, []string{list.Sessions[0].ID, list.Sessions[1].ID})

	rr = ts.do(t, http.MethodGet, "/sessions/"+first, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[SessionResponse](t, rr)
	assert.Equal(t, first, resp.ID)
	assert.Nil(t, resp.Payload)

	rr = ts.do(t, http.MethodGet, "/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, ReasonNotFound, decode[ErrorResponse](t, rr).Reason)
}

func TestPayload(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.open(t)

	rr := ts.do(t, http.MethodGet, "/sessions/"+id+"/payload", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	payload := decode[map[string][]any](t, rr)
	assert.Len(t, payload["asset_list"], 3)

	turbine := payload["asset_list"][0].([]any)
	assert.Equal(t, []any{"point", "Turbine", "wt-1", "WindTurbine", 52.0, 4.0}, turbine)
}

func TestSaveSession(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.open(t)

	rr := ts.do(t, http.MethodPut, "/sessions/"+id+"/assets/wt-1/point", UpdatePointBody{Point: pointAt(52.01, 4.01)})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	assert.True(t, ts.sessions.List()[0].Dirty)

	rr = ts.do(t, http.MethodPost, "/sessions/"+id+"/save", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.False(t, decode[SessionResponse](t, rr).Dirty)

	es, err := store.LoadSystem(context.Background(), ts.docs, "polder")
	require.NoError(t, err)
	root, _ := es.RootArea()
	pt, ok := root.Assets[0].Geometry.Point()
	require.True(t, ok)
	assert.InDelta(t, 52.01, pt.Lat, 1e-9)

	rr = ts.do(t, http.MethodPost, "/sessions/nope/save", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCloseSession(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.open(t)

	rr := ts.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, ts.sessions.Count())

	rr = ts.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCatalog(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodGet, "/catalog", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	catalog := decode[CatalogResponse](t, rr)

	byType := make(map[string]CatalogEntry)
	for _, e := range catalog.Types {
		byType[e.Type] = e
	}
	assert.Equal(t, "Line", byType["ElectricityCable"].Geometry)
	assert.Equal(t, []string{"InPort", "OutPort"}, byType["ElectricityCable"].Ports)
	assert.Empty(t, byType["Building"].Ports)
	assert.Equal(t, "AggregatedBuilding", catalog.Types[0].Type)
}

func TestHealthAndReady(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[map[string]any](t, rr)
	assert.Equal(t, "test", resp["version"])
	checks := resp["checks"].(map[string]any)
	assert.Contains(t, checks, "store")
	assert.Contains(t, checks, "sessions")

	rr = ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.open(t)
	ts.do(t, http.MethodGet, "/sessions/"+id, nil)
	ts.do(t, http.MethodGet, "/sessions/missing", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.HTTPRequestsTotal.WithLabelValues("GET", "GET /sessions/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.HTTPRequestsTotal.WithLabelValues("GET", "GET /sessions/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.HTTPRequestsTotal.WithLabelValues("POST", "POST /sessions", "201")))
	assert.Zero(t, testutil.ToFloat64(ts.metrics.HTTPRequestsInFlight))

	rr := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "mapeditor_http_requests_total")
	assert.Contains(t, rr.Body.String(), "mapeditor_sessions_active 1")
}

func TestMethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t)

	rr := ts.do(t, http.MethodPatch, "/sessions", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = ts.do(t, http.MethodDelete, "/graphql", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Contains(t, rr.Header().Get("Allow"), http.MethodPost)

	// GET is routed; without a query string it is a bad request, not 405
	rr = ts.do(t, http.MethodGet, "/graphql", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequestIDHeader(t *testing.T) {
	ts := setupTestServer(t)
	rr := ts.do(t, http.MethodGet, "/sessions", nil)
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)
}
