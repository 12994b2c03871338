package connectivity

import (
	"testing"

	"github.com/dd0wney/cluso-mapeditor/pkg/geo"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pointAsset(id string, c geo.Coordinate, kinds ...model.PortKind) *model.Asset {
	a := &model.Asset{ID: id, Type: model.Joint, Geometry: model.PointGeometry(c)}
	for i, k := range kinds {
		a.Ports = append(a.Ports, model.NewPort(id+"-"+k.String()+string(rune('0'+i)), k))
	}
	return a
}

func conductor(id string, pts ...geo.Coordinate) *model.Asset {
	return &model.Asset{
		ID:       id,
		Type:     model.ElectricityCable,
		Geometry: model.LineGeometry(pts...),
		Ports:    []*model.Port{model.NewPort(id+"-in", model.PortIn), model.NewPort(id+"-out", model.PortOut)},
	}
}

// assertSymmetric checks every link in both directions
func assertSymmetric(t *testing.T, assets ...*model.Asset) {
	t.Helper()
	ports := map[string]*model.Port{}
	for _, a := range assets {
		for _, p := range a.Ports {
			ports[p.ID] = p
		}
	}
	for id, p := range ports {
		for _, target := range p.ConnectedTo {
			partner, ok := ports[target]
			if assert.True(t, ok, "port %s links to unknown %s", id, target) {
				assert.True(t, partner.IsConnectedTo(id), "link %s -> %s is one-sided", id, target)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassPoint, Classify(pointAsset("p", geo.Coord(0, 0))))
	assert.Equal(t, ClassConductor, Classify(conductor("c", geo.Coord(0, 0), geo.Coord(1, 1))))
	assert.Equal(t, ClassUnsupported, Classify(&model.Asset{ID: "poly", Geometry: model.PolygonGeometry(geo.Coord(0, 0))}))
	assert.Equal(t, ClassUnsupported, Classify(&model.Asset{ID: "none"}))
	// a one-vertex line cannot be a conductor
	assert.Equal(t, ClassUnsupported, Classify(&model.Asset{ID: "stub", Geometry: model.LineGeometry(geo.Coord(0, 0))}))
}

func TestConnect_PointToPoint_OutToIn(t *testing.T) {
	producer := pointAsset("wt", geo.Coord(52, 4), model.PortOut)
	consumer := pointAsset("hp", geo.Coord(52, 4.1), model.PortIn, model.PortOut)

	link, err := Connect(producer, consumer)
	require.NoError(t, err)
	assert.True(t, link.Created)
	assert.Equal(t, producer.Ports[0].ID, link.FromPortID)
	assert.Equal(t, consumer.Ports[0].ID, link.ToPortID)
	assert.Equal(t, []string{consumer.Ports[0].ID}, producer.Ports[0].ConnectedTo)
	assert.Empty(t, consumer.Ports[1].ConnectedTo)
	assertSymmetric(t, producer, consumer)
}

func TestConnect_PointToPoint_SecondAssetDrives(t *testing.T) {
	multi := pointAsset("tr", geo.Coord(0, 0), model.PortIn, model.PortOut)
	demand := pointAsset("d", geo.Coord(0, 1), model.PortIn)

	link, err := Connect(multi, demand)
	require.NoError(t, err)
	assert.Equal(t, multi.Ports[1].ID, link.FromPortID, "In on demand pairs with Out on transformer")
	assert.Equal(t, demand.Ports[0].ID, link.ToPortID)
	assertSymmetric(t, multi, demand)
}

func TestConnect_PointToPoint_UntypedDrawsFromOut(t *testing.T) {
	a := pointAsset("a", geo.Coord(0, 0), model.PortUntyped)
	b := pointAsset("b", geo.Coord(0, 1), model.PortIn, model.PortUntyped, model.PortOut)

	link, err := Connect(a, b)
	require.NoError(t, err)
	assert.Equal(t, a.Ports[0].ID, link.FromPortID)
	assert.Equal(t, b.Ports[2].ID, link.ToPortID)
	assertSymmetric(t, a, b)

	lone := pointAsset("lone", geo.Coord(0, 2), model.PortUntyped)
	other := pointAsset("other", geo.Coord(0, 3), model.PortIn, model.PortUntyped)
	_, err = Connect(lone, other)
	assert.ErrorIs(t, err, model.ErrNoCompatiblePort)
}

func TestConnect_PointToPoint_LinksOnlyFirstCompatible(t *testing.T) {
	a := pointAsset("a", geo.Coord(0, 0), model.PortOut)
	b := pointAsset("b", geo.Coord(0, 1), model.PortIn, model.PortIn)

	link, err := Connect(a, b)
	require.NoError(t, err)
	assert.Equal(t, b.Ports[0].ID, link.ToPortID)
	assert.Equal(t, []string{b.Ports[0].ID}, a.Ports[0].ConnectedTo)
	assert.Empty(t, b.Ports[1].ConnectedTo)
}

func TestConnect_PointToPoint_Errors(t *testing.T) {
	t.Run("both multi-port", func(t *testing.T) {
		a := pointAsset("a", geo.Coord(0, 0), model.PortIn, model.PortOut)
		b := pointAsset("b", geo.Coord(0, 1), model.PortIn, model.PortOut)
		_, err := Connect(a, b)
		assert.True(t, model.IsUnsupported(err), "got %v", err)
		assert.NotErrorIs(t, err, model.ErrNoCompatiblePort)
	})

	t.Run("no compatible port", func(t *testing.T) {
		a := pointAsset("a", geo.Coord(0, 0), model.PortOut)
		b := pointAsset("b", geo.Coord(0, 1), model.PortOut)
		_, err := Connect(a, b)
		assert.ErrorIs(t, err, model.ErrNoCompatiblePort)
		assert.True(t, model.IsUnsupported(err))
		assert.Empty(t, a.Ports[0].ConnectedTo)
		assert.Empty(t, b.Ports[0].ConnectedTo)
	})

	t.Run("no ports", func(t *testing.T) {
		a := pointAsset("a", geo.Coord(0, 0))
		b := pointAsset("b", geo.Coord(0, 1))
		_, err := Connect(a, b)
		assert.ErrorIs(t, err, model.ErrNoCompatiblePort)
		assert.ErrorContains(t, err, "asset a has no ports")
		assert.NotContains(t, err.Error(), "multiple ports")
	})

	t.Run("partner without ports", func(t *testing.T) {
		a := pointAsset("a", geo.Coord(0, 0), model.PortIn, model.PortOut)
		b := pointAsset("b", geo.Coord(0, 1))
		_, err := Connect(a, b)
		assert.ErrorIs(t, err, model.ErrNoCompatiblePort)
		assert.ErrorContains(t, err, "asset b has no ports")
	})
}

func TestConnect_PointToConductor_NearestEnd(t *testing.T) {
	c := conductor("c", geo.Coord(0, 0), geo.Coord(0, 10))
	hp := pointAsset("hp", geo.Coord(0, 0.001), model.PortIn, model.PortOut)

	link, err := Connect(hp, c)
	require.NoError(t, err)
	assert.Equal(t, "c-in", link.ToPortID, "near the first vertex binds port[0]")
	assert.Equal(t, hp.Ports[1].ID, link.FromPortID, "first port whose kind differs from In")
	assertSymmetric(t, hp, c)
}

func TestConnect_PointToConductor_EitherOrder(t *testing.T) {
	c := conductor("c", geo.Coord(0, 0), geo.Coord(0, 10))
	demand := pointAsset("d", geo.Coord(0, 9.9), model.PortIn)

	link, err := Connect(c, demand)
	require.NoError(t, err)
	assert.Equal(t, "c-out", link.ToPortID)
	assert.Equal(t, demand.Ports[0].ID, link.FromPortID)
	assertSymmetric(t, c, demand)
}

func TestConnect_PointToConductor_TieGoesToLast(t *testing.T) {
	c := conductor("c", geo.Coord(0, 0), geo.Coord(0, 10))
	wt := pointAsset("wt", geo.Coord(0, 5), model.PortOut)

	_, err := Connect(wt, c)
	require.Error(t, err, "Out meets Out at the last vertex")
	assert.ErrorIs(t, err, model.ErrNoCompatiblePort)

	joint := pointAsset("j", geo.Coord(0, 5), model.PortIn, model.PortOut)
	link, err := Connect(joint, c)
	require.NoError(t, err)
	assert.Equal(t, "c-out", link.ToPortID)
	assert.Equal(t, joint.Ports[0].ID, link.FromPortID)
}

func TestConnect_ConductorToConductor(t *testing.T) {
	a := conductor("a", geo.Coord(0, 0), geo.Coord(0, 1))
	b := conductor("b", geo.Coord(0, 1), geo.Coord(0, 2))

	_, err := Connect(a, b)
	assert.ErrorIs(t, err, model.ErrNotImplemented)
	assert.True(t, model.IsUnsupported(err))
	assert.Empty(t, a.Ports[1].ConnectedTo)
}

func TestConnect_UnsupportedGeometry(t *testing.T) {
	area := &model.Asset{ID: "poly", Type: model.Building, Geometry: model.PolygonGeometry(geo.Coord(0, 0), geo.Coord(1, 1), geo.Coord(1, 0))}
	p := pointAsset("p", geo.Coord(0, 0), model.PortOut)

	_, err := Connect(area, p)
	assert.True(t, model.IsUnsupported(err))
	_, err = Connect(p, area)
	assert.True(t, model.IsUnsupported(err))
}

func TestConnect_IsIdempotent(t *testing.T) {
	wt := pointAsset("wt", geo.Coord(0, 0), model.PortOut)
	d := pointAsset("d", geo.Coord(0, 1), model.PortIn)

	first, err := Connect(wt, d)
	require.NoError(t, err)
	second, err := Connect(wt, d)
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Len(t, wt.Ports[0].ConnectedTo, 1)
	assert.Len(t, d.Ports[0].ConnectedTo, 1)
}

func TestDisconnectPorts(t *testing.T) {
	p1 := model.NewPort("p1", model.PortOut)
	p2 := model.NewPort("p2", model.PortIn)
	require.True(t, ConnectPorts(p1, p2))

	assert.True(t, DisconnectPorts(p1, p2))
	assert.Empty(t, p1.ConnectedTo)
	assert.Empty(t, p2.ConnectedTo)
	assert.False(t, DisconnectPorts(p1, p2))
}
