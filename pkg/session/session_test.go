package session

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-mapeditor/pkg/audit"
	"github.com/dd0wney/cluso-mapeditor/pkg/connectivity"
	"github.com/dd0wney/cluso-mapeditor/pkg/geo"
	"github.com/dd0wney/cluso-mapeditor/pkg/geoindex"
	"github.com/dd0wney/cluso-mapeditor/pkg/hierarchy"
	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/metrics"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/pubsub"
	"github.com/dd0wney/cluso-mapeditor/pkg/render"
	"github.com/dd0wney/cluso-mapeditor/pkg/validation"
)

func point(id string, typ model.AssetType, lat, lon float64, ports ...*model.Port) *model.Asset {
	return &model.Asset{ID: id, Name: id, Type: typ, Geometry: model.PointGeometry(geo.Coord(lat, lon)), Ports: ports}
}

// fixture: a turbine at the start of a cable, a demand at its end and a heat
// pump inside a building in a sub-area
func fixture() *model.EnergySystem {
	cable := &model.Asset{
		ID: "c-1", Name: "Cable", Type: model.ElectricityCable,
		Geometry: model.LineGeometry(geo.Coord(52.0, 4.0), geo.Coord(52.1, 4.1)),
		Ports:    []*model.Port{model.NewPort("c-1-in", model.PortIn), model.NewPort("c-1-out", model.PortOut)},
		Length:   13000,
	}
	hp := point("hp-1", model.HeatPump, 52.05, 4.05, model.NewPort("hp-1-in", model.PortIn), model.NewPort("hp-1-out", model.PortOut))
	building := &model.Asset{ID: "bld-1", Name: "Farm", Type: model.Building,
		Geometry: model.PointGeometry(geo.Coord(52.05, 4.05)), Assets: []*model.Asset{hp}}

	north := model.NewArea("north", "North")
	north.Assets = []*model.Asset{building}

	root := model.NewArea("root", "Polder").AddArea(north)
	root.Assets = []*model.Asset{
		point("wt-1", model.WindTurbine, 52.0, 4.0, model.NewPort("wt-1-out", model.PortOut)),
		cable,
		point("d-1", model.ElectricityDemand, 52.1, 4.1, model.NewPort("d-1-in", model.PortIn)),
	}
	return model.NewEnergySystem("es-1", "Polder", root)
}

type harness struct {
	s       *Session
	events  *pubsub.PubSub
	sub     *pubsub.Subscription
	audit   *audit.AuditLogger
	metrics *metrics.Registry
}

func newHarness(t *testing.T, es *model.EnergySystem) *harness {
	t.Helper()
	h := &harness{
		events:  pubsub.NewPubSub(),
		audit:   audit.NewAuditLogger(100),
		metrics: metrics.NewRegistry(),
	}
	t.Cleanup(h.events.Shutdown)

	s, err := New("s-1", "es-1", es, Deps{Metrics: h.metrics, Events: h.events, Audit: h.audit})
	require.NoError(t, err)
	h.s = s

	sub, err := h.events.Subscribe(context.Background(), pubsub.SessionTopic("s-1"))
	require.NoError(t, err)
	h.sub = sub
	return h
}

func (h *harness) next(t *testing.T) pubsub.Event {
	t.Helper()
	select {
	case ev := <-h.sub.Channel():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return pubsub.Event{}
	}
}

func (h *harness) noEvent(t *testing.T) {
	t.Helper()
	select {
	case ev := <-h.sub.Channel():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.Counter.GetValue()
}

func (h *harness) commands(t *testing.T, command, status string) float64 {
	t.Helper()
	c, err := h.metrics.CommandsTotal.GetMetricWithLabelValues(command, status)
	require.NoError(t, err)
	return counterValue(t, c)
}

func (h *harness) index() *geoindex.Index {
	var idx *geoindex.Index
	h.s.View(func(_ *model.EnergySystem, i *geoindex.Index) { idx = i })
	return idx
}

func (h *harness) asset(t *testing.T, id string) *model.Asset {
	t.Helper()
	var found *model.Asset
	h.s.View(func(es *model.EnergySystem, _ *geoindex.Index) {
		root, _ := es.RootArea()
		found, _ = hierarchy.FindAsset(root, id)
	})
	require.NotNil(t, found, "asset %s", id)
	return found
}

func TestNew(t *testing.T) {
	h := newHarness(t, fixture())
	assert.Equal(t, "s-1", h.s.ID())
	assert.Equal(t, "es-1", h.s.SystemID())
	assert.Equal(t, 6, h.index().Len())
	assert.False(t, h.s.Info().Dirty)

	_, err := New("s-2", "empty", &model.EnergySystem{ID: "empty"}, Deps{})
	assert.True(t, model.IsNotFound(err))

	es := fixture()
	root, _ := es.RootArea()
	root.Assets[2].Ports[0].ID = "wt-1-out"
	_, err = New("s-3", "es-1", es, Deps{})
	assert.ErrorIs(t, err, model.ErrPortCollision)
}

func TestAddAsset_Point(t *testing.T) {
	h := newHarness(t, fixture())

	asset, err := h.s.AddAsset(&validation.AddAssetRequest{
		ContainerID: "north",
		Type:        string(model.Transformer),
		Point:       &validation.Point{Lat: 52.2, Lon: 4.2},
	})
	require.NoError(t, err)

	assert.Len(t, asset.ID, 36)
	assert.Equal(t, "Transformer_"+asset.ID[:4], asset.Name)
	require.Len(t, asset.Ports, 2)
	assert.Equal(t, model.PortIn, asset.Ports[0].Kind)
	assert.Equal(t, model.PortOut, asset.Ports[1].Kind)
	assert.NotEqual(t, asset.Ports[0].ID, asset.Ports[1].ID)

	entry, ok := h.index().Lookup(asset.Ports[1].ID)
	require.True(t, ok)
	assert.Equal(t, geo.Coord(52.2, 4.2), entry.Coord)

	ev := h.next(t)
	assert.Equal(t, pubsub.EventAssetAdded, ev.Type)
	assert.Equal(t, "s-1", ev.SessionID)
	assert.Equal(t, asset.ID, ev.AssetID)

	assert.Equal(t, 1.0, h.commands(t, "add_asset", metrics.StatusOK))
	events := h.audit.GetEvents(&audit.Filter{Action: audit.ActionAddAsset})
	require.Len(t, events, 1)
	assert.Equal(t, audit.StatusSuccess, events[0].Status)
	assert.Equal(t, "es-1", events[0].SystemID)
	assert.True(t, h.s.Info().Dirty)
}

func TestAddAsset_LineDropsRepeatsAndComputesLength(t *testing.T) {
	h := newHarness(t, fixture())

	line := []validation.Point{{Lat: 52, Lon: 4}, {Lat: 52, Lon: 4}, {Lat: 52.1, Lon: 4}, {Lat: 52.1, Lon: 4}}
	asset, err := h.s.AddAsset(&validation.AddAssetRequest{
		ContainerID: "root", AssetID: "pipe-1", Name: "Main", Type: string(model.Pipe), Line: line,
	})
	require.NoError(t, err)

	assert.Equal(t, []geo.Coordinate{geo.Coord(52, 4), geo.Coord(52.1, 4)}, asset.Geometry.Points)
	assert.InDelta(t, geo.Distance(geo.Coord(52, 4), geo.Coord(52.1, 4))*1000, asset.Length, 1e-6)
	assert.InDelta(t, 11119.5, asset.Length, 1.0)

	asset2, err := h.s.AddAsset(&validation.AddAssetRequest{
		ContainerID: "root", AssetID: "pipe-2", Type: string(model.Pipe), Line: line, Length: 250,
	})
	require.NoError(t, err)
	assert.Equal(t, 250.0, asset2.Length)
}

func TestAddAsset_LineCollapsingToOnePoint(t *testing.T) {
	h := newHarness(t, fixture())
	_, err := h.s.AddAsset(&validation.AddAssetRequest{
		ContainerID: "root", Type: string(model.Pipe), Line: []validation.Point{{Lat: 1, Lon: 1}, {Lat: 1, Lon: 1}},
	})
	assert.True(t, model.IsInvalid(err))
	assert.Equal(t, 1.0, h.commands(t, "add_asset", metrics.StatusRejected))
}

func TestAddAsset_IntoBuilding(t *testing.T) {
	h := newHarness(t, fixture())
	_, err := h.s.AddAsset(&validation.AddAssetRequest{
		ContainerID: "bld-1", AssetID: "pv-1", Type: string(model.PVPanel), Point: &validation.Point{Lat: 52.05, Lon: 4.05},
	})
	require.NoError(t, err)

	bld := h.asset(t, "bld-1")
	require.Len(t, bld.Assets, 2)
	assert.Equal(t, "pv-1", bld.Assets[1].ID)
}

func TestAddAsset_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		req   *validation.AddAssetRequest
		check func(error) bool
	}{
		{"nil request", nil, validation.IsInvalidRequest},
		{"unknown type", &validation.AddAssetRequest{ContainerID: "root", Type: "FluxCapacitor", Point: &validation.Point{}}, validation.IsInvalidRequest},
		{"latitude out of range", &validation.AddAssetRequest{ContainerID: "root", Type: "Joint", Point: &validation.Point{Lat: 91}}, validation.IsInvalidRequest},
		{"unknown container", &validation.AddAssetRequest{ContainerID: "atlantis", Type: "Joint", Point: &validation.Point{}}, model.IsNotFound},
		{"container is not a building", &validation.AddAssetRequest{ContainerID: "wt-1", Type: "Joint", Point: &validation.Point{}}, model.IsUnsupported},
		{"duplicate id", &validation.AddAssetRequest{ContainerID: "root", AssetID: "hp-1", Type: "Joint", Point: &validation.Point{}}, model.IsIntegrity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, fixture())
			before := h.s.Payload()

			_, err := h.s.AddAsset(tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
			assert.Equal(t, before, h.s.Payload(), "model must be unchanged")
			assert.Equal(t, 1.0, h.commands(t, "add_asset", metrics.StatusRejected))
			assert.Len(t, h.audit.GetEvents(&audit.Filter{Status: audit.StatusRejected}), 1)
			h.noEvent(t)
		})
	}
}

func TestConnectAssets(t *testing.T) {
	h := newHarness(t, fixture())

	link, err := h.s.ConnectAssets("wt-1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, "wt-1-out", link.FromPortID)
	assert.Equal(t, "c-1-in", link.ToPortID)
	assert.True(t, link.Created)

	// the demand sits on the far end of the cable
	link, err = h.s.ConnectAssets("c-1", "d-1")
	require.NoError(t, err)
	assert.Equal(t, "d-1-in", link.FromPortID)
	assert.Equal(t, "c-1-out", link.ToPortID)

	ports, err := h.s.GetPorts("c-1")
	require.NoError(t, err)
	assert.Equal(t, []PortInfo{
		{ID: "c-1-in", Kind: "InPort", ConnectedTo: []string{"wt-1-out"}},
		{ID: "c-1-out", Kind: "OutPort", ConnectedTo: []string{"d-1-in"}},
	}, ports)

	ev := h.next(t)
	assert.Equal(t, pubsub.EventAssetsConnected, ev.Type)
	data := ev.Data.(map[string]any)
	assert.Equal(t, "c-1", data["partner_id"])
	assert.Equal(t, render.Connection{
		FromPortID: "wt-1-out", FromCoord: [2]float64{52.0, 4.0},
		ToPortID: "c-1-in", ToCoord: [2]float64{52.0, 4.0},
	}, data["connection"])

	payload := h.s.Payload()
	assert.Len(t, payload.Connections, 4, "each link is drawn from both sides")
	assert.Empty(t, payload.Dangling)
}

func TestConnectedEvent_UnindexedEndpoint(t *testing.T) {
	var buf bytes.Buffer
	s, err := New("s-1", "es-1", fixture(), Deps{Logger: logging.NewJSONLogger(&buf, logging.DebugLevel)})
	require.NoError(t, err)

	ev := s.connectedEvent(connectivity.Link{FromPortID: "ghost", ToPortID: "c-1-in", Created: true}, "wt-1", "c-1")

	assert.Equal(t, pubsub.EventAssetsConnected, ev.Type)
	data := ev.Data.(map[string]any)
	assert.NotContains(t, data, "connection")
	assert.Equal(t, true, data["created"])
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), "port has no indexed coordinate")
}

func TestConnectAssets_Idempotent(t *testing.T) {
	h := newHarness(t, fixture())
	_, err := h.s.ConnectAssets("wt-1", "c-1")
	require.NoError(t, err)

	link, err := h.s.ConnectAssets("c-1", "wt-1")
	require.NoError(t, err)
	assert.False(t, link.Created)

	ports, err := h.s.GetPorts("wt-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1-in"}, ports[0].ConnectedTo)
}

func TestConnectAssets_Rejections(t *testing.T) {
	h := newHarness(t, fixture())
	_, err := h.s.AddAsset(&validation.AddAssetRequest{ContainerID: "root", AssetID: "c-2", Type: "ElectricityCable",
		Line: []validation.Point{{Lat: 52.1, Lon: 4.1}, {Lat: 52.2, Lon: 4.2}}})
	require.NoError(t, err)
	h.next(t)

	_, err = h.s.ConnectAssets("c-1", "c-2")
	assert.ErrorIs(t, err, model.ErrNotImplemented)

	_, err = h.s.ConnectAssets("wt-1", "d-404")
	assert.True(t, model.IsNotFound(err))

	_, err = h.s.ConnectAssets("wt-1", "wt-1")
	assert.True(t, validation.IsInvalidRequest(err))

	// a building has no ports to pair with
	_, err = h.s.ConnectAssets("hp-1", "bld-1")
	assert.True(t, model.IsUnsupported(err))

	for _, id := range []string{"c-1", "c-2", "wt-1"} {
		ports, err := h.s.GetPorts(id)
		require.NoError(t, err)
		for _, p := range ports {
			assert.Empty(t, p.ConnectedTo, "port %s", p.ID)
		}
	}
	h.noEvent(t)
}

func TestRemoveAsset_CleansPartners(t *testing.T) {
	h := newHarness(t, fixture())
	_, err := h.s.ConnectAssets("wt-1", "c-1")
	require.NoError(t, err)
	_, err = h.s.ConnectAssets("d-1", "c-1")
	require.NoError(t, err)
	h.next(t)
	h.next(t)

	n, err := h.s.RemoveAsset("c-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, id := range []string{"wt-1", "d-1"} {
		ports, err := h.s.GetPorts(id)
		require.NoError(t, err)
		assert.Empty(t, ports[0].ConnectedTo)
	}
	_, ok := h.index().Lookup("c-1-in")
	assert.False(t, ok)

	ev := h.next(t)
	assert.Equal(t, pubsub.EventAssetRemoved, ev.Type)
	assert.Equal(t, "c-1", ev.AssetID)

	var metric dto.Metric
	require.NoError(t, h.metrics.DanglingReferencesTotal.Write(&metric))
	assert.Equal(t, 2.0, metric.Counter.GetValue())

	payload := h.s.Payload()
	assert.Empty(t, payload.Connections)
	assert.Empty(t, payload.Dangling)
}

func TestRemoveAsset_BuildingTakesChildrenAndTheirLinks(t *testing.T) {
	h := newHarness(t, fixture())
	_, err := h.s.ConnectAssets("hp-1", "wt-1")
	require.NoError(t, err)
	h.next(t)

	n, err := h.s.RemoveAsset("bld-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ports, err := h.s.GetPorts("wt-1")
	require.NoError(t, err)
	assert.Empty(t, ports[0].ConnectedTo)

	_, err = h.s.GetPorts("hp-1")
	assert.True(t, model.IsNotFound(err))
}

func TestRemoveAsset_EveryInstance(t *testing.T) {
	es := fixture()
	root, _ := es.RootArea()
	north, _ := hierarchy.FindArea(root, "north")
	// portless duplicates slip past the index and are removed together
	north.Assets = append(north.Assets, &model.Asset{ID: "dup", Type: model.Joint, Geometry: model.PointGeometry(geo.Coord(1, 1))})
	root.Assets = append(root.Assets, &model.Asset{ID: "dup", Type: model.Joint, Geometry: model.PointGeometry(geo.Coord(1, 1))})

	h := newHarness(t, es)
	n, err := h.s.RemoveAsset("dup")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, second := h.next(t), h.next(t)
	assert.Equal(t, "root", first.Data.(map[string]any)["container_id"])
	assert.Equal(t, "north", second.Data.(map[string]any)["container_id"])
}

func TestRemoveAsset_Unknown(t *testing.T) {
	h := newHarness(t, fixture())
	_, err := h.s.RemoveAsset("ghost")
	assert.True(t, model.IsNotFound(err))
	assert.False(t, h.s.Info().Dirty)

	_, err = h.s.RemoveAsset("")
	assert.True(t, validation.IsInvalidRequest(err))
}

func TestUpdatePoint(t *testing.T) {
	h := newHarness(t, fixture())
	require.NoError(t, h.s.UpdatePoint("wt-1", 51.5, 3.5))

	entry, ok := h.index().Lookup("wt-1-out")
	require.True(t, ok)
	assert.Equal(t, geo.Coord(51.5, 3.5), entry.Coord)

	ev := h.next(t)
	assert.Equal(t, pubsub.EventAssetMoved, ev.Type)
	assert.Equal(t, "wt-1", ev.AssetID)

	err := h.s.UpdatePoint("c-1", 1, 1)
	assert.True(t, model.IsUnsupported(err))

	err = h.s.UpdatePoint("wt-1", 1, 200)
	assert.True(t, validation.IsInvalidRequest(err))

	err = h.s.UpdatePoint("ghost", 1, 1)
	assert.True(t, model.IsNotFound(err))
}

func TestUpdateLine(t *testing.T) {
	h := newHarness(t, fixture())
	line := []validation.Point{{Lat: 52.0, Lon: 4.0}, {Lat: 52.0, Lon: 4.1}, {Lat: 52.0, Lon: 4.1}, {Lat: 52.2, Lon: 4.1}}
	require.NoError(t, h.s.UpdateLine("c-1", line, 0))

	cable := h.asset(t, "c-1")
	require.Len(t, cable.Geometry.Points, 3)
	want := geo.PathLength(cable.Geometry.Points) * 1000
	assert.InDelta(t, want, cable.Length, 1e-6)

	out, ok := h.index().Lookup("c-1-out")
	require.True(t, ok)
	assert.Equal(t, geo.Coord(52.2, 4.1), out.Coord)

	ev := h.next(t)
	assert.Equal(t, pubsub.EventAssetMoved, ev.Type)
	assert.InDelta(t, want, ev.Data.(map[string]any)["length"], 1e-6)

	require.NoError(t, h.s.UpdateLine("c-1", line, 42))
	assert.Equal(t, 42.0, h.asset(t, "c-1").Length)

	assert.True(t, model.IsUnsupported(h.s.UpdateLine("wt-1", line, 0)))
	assert.True(t, validation.IsInvalidRequest(h.s.UpdateLine("c-1", line[:1], 0)))
}

func TestCommandRevertsWhenIndexCannotBeRebuilt(t *testing.T) {
	es := fixture()
	root, _ := es.RootArea()
	// a point asset without a coordinate is not indexed, so its borrowed
	// port id only collides once it gets a position
	root.Assets = append(root.Assets, &model.Asset{
		ID: "ghost", Type: model.Joint, Geometry: model.Geometry{Kind: model.GeometryPoint},
		Ports: []*model.Port{model.NewPort("wt-1-out", model.PortIn)},
	})
	h := newHarness(t, es)
	before := h.index()

	err := h.s.UpdatePoint("ghost", 10, 10)
	assert.ErrorIs(t, err, model.ErrPortCollision)

	ghost := h.asset(t, "ghost")
	assert.False(t, ghost.Geometry.IsPoint(), "geometry must be restored")
	assert.True(t, before.Equal(h.index()))
	assert.Equal(t, 1.0, h.commands(t, "update_point", metrics.StatusRejected))
	h.noEvent(t)
}

func TestConnectRevertRestoresLinks(t *testing.T) {
	a := point("a", model.WindTurbine, 0, 0, &model.Port{ID: "a-out", Kind: model.PortOut, ConnectedTo: []string{"x"}})
	b := point("b", model.ElectricityDemand, 0, 0, model.NewPort("b-in", model.PortIn))
	snap := snapshotLinks(a, b)

	a.Ports[0].AddLink("b-in")
	b.Ports[0].AddLink("a-out")
	snap.restore()

	assert.Equal(t, []string{"x"}, a.Ports[0].ConnectedTo)
	assert.Empty(t, b.Ports[0].ConnectedTo)
}

func TestConcurrentCommands(t *testing.T) {
	h := newHarness(t, fixture())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.s.AddAsset(&validation.AddAssetRequest{
				ContainerID: "root", AssetID: fmt.Sprintf("j-%d", i), Type: "Joint",
				Point: &validation.Point{Lat: float64(i), Lon: float64(i)},
			})
			assert.NoError(t, err)
			_ = h.s.Payload()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 6+40, h.index().Len())
	assert.Equal(t, 20.0, h.commands(t, "add_asset", metrics.StatusOK))
}
