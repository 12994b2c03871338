// Package graphql exposes a read-only query schema over open editing sessions
package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-mapeditor/pkg/session"
)

// Sessions resolves a session id to an open session
type Sessions interface {
	Get(id string) (*session.Session, error)
}

var coordType = graphql.NewList(graphql.Float)

var portType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Port",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: port(func(p portView) any { return p.ID })},
		"name":        &graphql.Field{Type: graphql.String, Resolve: port(func(p portView) any { return p.Name })},
		"kind":        &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: port(func(p portView) any { return p.Kind })},
		"connectedTo": &graphql.Field{Type: graphql.NewList(graphql.ID), Resolve: port(func(p portView) any { return p.ConnectedTo })},
		"lat":         &graphql.Field{Type: graphql.Float, Resolve: port(func(p portView) any { return deref(p.Lat) })},
		"lon":         &graphql.Field{Type: graphql.Float, Resolve: port(func(p portView) any { return deref(p.Lon) })},
	},
})

var assetType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Asset",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: asset(func(a assetView) any { return a.ID })},
		"name":      &graphql.Field{Type: graphql.String, Resolve: asset(func(a assetView) any { return a.Name })},
		"type":      &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: asset(func(a assetView) any { return a.Type })},
		"geometry":  &graphql.Field{Type: graphql.String, Resolve: asset(func(a assetView) any { return a.Geometry })},
		"container": &graphql.Field{Type: graphql.ID, Resolve: asset(func(a assetView) any { return a.Container })},
		"length":    &graphql.Field{Type: graphql.Float, Resolve: asset(func(a assetView) any { return a.Length })},
		"points": &graphql.Field{
			Type: graphql.NewList(coordType),
			Resolve: asset(func(a assetView) any {
				out := make([][]float64, len(a.Points))
				for i, p := range a.Points {
					out[i] = []float64{p[0], p[1]}
				}
				return out
			}),
		},
		"ports": &graphql.Field{Type: graphql.NewList(portType), Resolve: asset(func(a assetView) any { return a.Ports })},
	},
})

var containerType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Container",
	Fields: graphql.Fields{
		"id":     &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: container(func(c containerView) any { return c.ID })},
		"name":   &graphql.Field{Type: graphql.String, Resolve: container(func(c containerView) any { return c.Name })},
		"kind":   &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: container(func(c containerView) any { return c.Kind })},
		"depth":  &graphql.Field{Type: graphql.Int, Resolve: container(func(c containerView) any { return c.Depth })},
		"parent": &graphql.Field{Type: graphql.ID, Resolve: container(func(c containerView) any { return c.Parent })},
	},
})

var connectionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Connection",
	Fields: graphql.Fields{
		"fromPortId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"fromCoord":  &graphql.Field{Type: coordType},
		"toPortId":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"toCoord":    &graphql.Field{Type: coordType},
	},
})

func deref(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func port(get func(portView) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		if v, ok := p.Source.(portView); ok {
			return get(v), nil
		}
		return nil, nil
	}
}

func asset(get func(assetView) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		if v, ok := p.Source.(assetView); ok {
			return get(v), nil
		}
		return nil, nil
	}
}

func container(get func(containerView) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		if v, ok := p.Source.(containerView); ok {
			return get(v), nil
		}
		return nil, nil
	}
}

// GenerateSchema builds the query schema. Every top-level field takes the
// session id; results reflect the session at the time of the query.
func GenerateSchema(sessions Sessions) (graphql.Schema, error) {
	sessionArg := graphql.FieldConfigArgument{
		"session": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}
	withSession := func(resolve func(v *systemView, p graphql.ResolveParams) (any, error)) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (any, error) {
			id, _ := p.Args["session"].(string)
			s, err := sessions.Get(id)
			if err != nil {
				return nil, err
			}
			return resolve(snapshot(s), p)
		}
	}

	queryFields := graphql.Fields{
		"health": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return "ok", nil
			},
		},
		"areas": &graphql.Field{
			Type: graphql.NewList(containerType),
			Args: sessionArg,
			Resolve: withSession(func(v *systemView, _ graphql.ResolveParams) (any, error) {
				return v.Containers, nil
			}),
		},
		"assets": &graphql.Field{
			Type: graphql.NewList(assetType),
			Args: graphql.FieldConfigArgument{
				"session": sessionArg["session"],
				"type":    &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: withSession(func(v *systemView, p graphql.ResolveParams) (any, error) {
				typ, _ := p.Args["type"].(string)
				if typ == "" {
					return v.Assets, nil
				}
				var out []assetView
				for _, a := range v.Assets {
					if a.Type == typ {
						out = append(out, a)
					}
				}
				return out, nil
			}),
		},
		"asset": &graphql.Field{
			Type: assetType,
			Args: graphql.FieldConfigArgument{
				"session": sessionArg["session"],
				"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
			},
			Resolve: withSession(func(v *systemView, p graphql.ResolveParams) (any, error) {
				id, _ := p.Args["id"].(string)
				if a, ok := v.asset(id); ok {
					return a, nil
				}
				return nil, nil
			}),
		},
		"connections": &graphql.Field{
			Type: graphql.NewList(connectionType),
			Args: sessionArg,
			Resolve: withSession(func(v *systemView, _ graphql.ResolveParams) (any, error) {
				out := make([]map[string]any, len(v.Connections))
				for i, c := range v.Connections {
					out[i] = map[string]any{
						"fromPortId": c.FromPortID,
						"fromCoord":  []float64{c.FromCoord[0], c.FromCoord[1]},
						"toPortId":   c.ToPortID,
						"toCoord":    []float64{c.ToCoord[0], c.ToCoord[1]},
					}
				}
				return out, nil
			}),
		},
	}

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queryFields}),
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}
