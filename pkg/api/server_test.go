package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-mapeditor/pkg/audit"
	"github.com/dd0wney/cluso-mapeditor/pkg/geo"
	"github.com/dd0wney/cluso-mapeditor/pkg/metrics"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/pubsub"
	"github.com/dd0wney/cluso-mapeditor/pkg/session"
	"github.com/dd0wney/cluso-mapeditor/pkg/store"
)

// polder: a turbine at the start of a cable and a demand at its end
func polder() *model.EnergySystem {
	cable := &model.Asset{
		ID: "c-1", Name: "Cable", Type: model.ElectricityCable,
		Geometry: model.LineGeometry(geo.Coord(52.0, 4.0), geo.Coord(52.1, 4.1)),
		Ports:    []*model.Port{model.NewPort("c-1-in", model.PortIn), model.NewPort("c-1-out", model.PortOut)},
		Length:   13000,
	}
	root := model.NewArea("root", "Polder")
	root.Assets = []*model.Asset{
		{ID: "wt-1", Name: "Turbine", Type: model.WindTurbine,
			Geometry: model.PointGeometry(geo.Coord(52.0, 4.0)), Ports: []*model.Port{model.NewPort("wt-1-out", model.PortOut)}},
		cable,
		{ID: "d-1", Name: "Demand", Type: model.ElectricityDemand,
			Geometry: model.PointGeometry(geo.Coord(52.1, 4.1)), Ports: []*model.Port{model.NewPort("d-1-in", model.PortIn)}},
	}
	return model.NewEnergySystem("polder", "Polder", root)
}

type testServer struct {
	server   *Server
	handler  http.Handler
	sessions *session.Manager
	docs     *store.FileStore
	events   *pubsub.PubSub
	audit    *audit.AuditLogger
	metrics  *metrics.Registry
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	docs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SaveSystem(context.Background(), docs, "polder", polder()))

	ts := &testServer{
		docs:    docs,
		events:  pubsub.NewPubSub(),
		audit:   audit.NewAuditLogger(100),
		metrics: metrics.NewRegistry(),
	}
	t.Cleanup(ts.events.Shutdown)

	ts.sessions = session.NewManager(docs, session.Deps{Metrics: ts.metrics, Events: ts.events, Audit: ts.audit})
	ts.server, err = NewServer(Deps{
		Sessions: ts.sessions,
		Docs:     docs,
		Events:   ts.events,
		Audit:    ts.audit,
		Metrics:  ts.metrics,
	}, Config{Version: "test", MaxBodyBytes: 1 << 20, GraphQLMaxDepth: 3})
	require.NoError(t, err)
	ts.handler = ts.server.Handler()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// open starts a session on the stored polder system and returns its id
func (ts *testServer) open(t *testing.T) string {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/sessions", OpenSessionRequest{SystemID: "polder"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[map[string]any](t, rr)["id"].(string)
}

// decode reads a JSON body. Payload records encode as arrays, so bodies
// carrying them are decoded into maps rather than the response types.
func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}
