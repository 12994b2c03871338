package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-mapeditor/pkg/audit"
	"github.com/dd0wney/cluso-mapeditor/pkg/pubsub"
)

type sseEvent struct {
	name string
	data pubsub.Event
}

// readEvents parses server-sent events off body until it ends
func readEvents(t *testing.T, body *bufio.Scanner, out chan<- sseEvent) {
	defer close(out)
	var current sseEvent
	for body.Scan() {
		line := body.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.data); err != nil {
				t.Errorf("bad event data %q: %v", line, err)
			}
		case line == "" && current.name != "":
			out <- current
			current = sseEvent{}
		}
	}
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream ended early")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return sseEvent{}
	}
}

func TestEventStream(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.open(t)

	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/" + id + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan sseEvent, 8)
	go readEvents(t, bufio.NewScanner(resp.Body), events)

	rr := ts.do(t, http.MethodPut, "/sessions/"+id+"/assets/wt-1/point", UpdatePointBody{Point: pointAt(52.5, 4.5)})
	require.Equal(t, http.StatusNoContent, rr.Code)

	ev := nextEvent(t, events)
	assert.Equal(t, "asset_moved", ev.name)
	assert.Equal(t, pubsub.EventAssetMoved, ev.data.Type)
	assert.Equal(t, "wt-1", ev.data.AssetID)
	assert.Equal(t, id, ev.data.SessionID)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.EventStreamsActive))

	rr = ts.do(t, http.MethodDelete, "/sessions/"+id, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	ev = nextEvent(t, events)
	assert.Equal(t, "session_closed", ev.name)

	select {
	case _, ok := <-events:
		assert.False(t, ok, "stream should end after the session closes")
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}
	assert.Zero(t, testutil.ToFloat64(ts.metrics.EventStreamsActive))
}

func TestEventStream_UnknownSession(t *testing.T) {
	ts := setupTestServer(t)
	rr := ts.do(t, http.MethodGet, "/sessions/ghost/events", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAudit(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.open(t)
	ts.do(t, http.MethodPut, "/sessions/"+id+"/assets/wt-1/point", UpdatePointBody{Point: pointAt(52.5, 4.5)})
	ts.do(t, http.MethodPut, "/sessions/"+id+"/assets/c-1/point", UpdatePointBody{Point: pointAt(52.5, 4.5)})

	rr := ts.do(t, http.MethodGet, "/audit?session_id="+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[AuditResponse](t, rr)
	require.Equal(t, 3, all.Count)
	assert.Equal(t, audit.ActionOpen, all.Events[0].Action)
	assert.Equal(t, int64(3), all.Total)

	rr = ts.do(t, http.MethodGet, "/audit?action=update_point&status=rejected", nil)
	rejected := decode[AuditResponse](t, rr)
	require.Equal(t, 1, rejected.Count)
	assert.Equal(t, "c-1", rejected.Events[0].AssetID)
	assert.NotEmpty(t, rejected.Events[0].ErrorMessage)

	rr = ts.do(t, http.MethodGet, "/audit?limit=1", nil)
	latest := decode[AuditResponse](t, rr)
	require.Equal(t, 1, latest.Count)
	assert.Equal(t, "c-1", latest.Events[0].AssetID)

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	rr = ts.do(t, http.MethodGet, "/audit?start_time="+future, nil)
	assert.Zero(t, decode[AuditResponse](t, rr).Count)
}

func TestAudit_BadParameters(t *testing.T) {
	ts := setupTestServer(t)

	for _, q := range []string{"limit=0", "limit=x", "start_time=yesterday", "end_time=2024-13-01"} {
		rr := ts.do(t, http.MethodGet, "/audit?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestGraphQLRoute(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.open(t)

	rr := ts.do(t, http.MethodPost, "/graphql", map[string]string{
		"query": `{ asset(session: "` + id + `", id: "c-1") { id type ports { id kind } } }`,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data struct {
			Asset struct {
				ID    string `json:"id"`
				Type  string `json:"type"`
				Ports []struct {
					ID   string `json:"id"`
					Kind string `json:"kind"`
				} `json:"ports"`
			} `json:"asset"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Empty(t, body.Errors)
	assert.Equal(t, "ElectricityCable", body.Data.Asset.Type)
	assert.Len(t, body.Data.Asset.Ports, 2)
}
