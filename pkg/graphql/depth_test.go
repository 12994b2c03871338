package graphql

import (
	"context"
	"strings"
	"testing"
)

func TestQueryDepth(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"scalar only", `{ health }`, 1},
		{"asset with ports", `{ asset(session: "s", id: "a") { id ports { id } } }`, 3},
		{"introspection ignored", `{ __schema { types { name } } }`, 0},
		{"inline fragment", `{ assets(session: "s") { ... on Asset { ports { id } } } }`, 3},
		{"named fragment", `{ assets(session: "s") { ...P } } fragment P on Asset { ports { id } }`, 3},
		{"self-referencing fragment", `{ assets(session: "s") { ...P } } fragment P on Asset { id ...P }`, 2},
		{"deepest operation wins", `query A { health } query B { areas(session: "s") { id } }`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QueryDepth(tt.query)
			if err != nil {
				t.Fatalf("QueryDepth() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("QueryDepth() = %d, want %d", got, tt.want)
			}
		})
	}

	if _, err := QueryDepth(`{ assets(`); err == nil {
		t.Error("Expected parse error")
	}
}

func TestCheckDepth(t *testing.T) {
	if err := CheckDepth(`{ asset(session: "s", id: "a") { ports { id } } }`, 3); err != nil {
		t.Errorf("Depth 3 should pass a limit of 3: %v", err)
	}
	err := CheckDepth(`{ asset(session: "s", id: "a") { ports { id } } }`, 2)
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum allowed depth 2") {
		t.Errorf("Expected depth error, got %v", err)
	}
}

func TestExecute_DepthLimit(t *testing.T) {
	m, _ := testManager(t)
	schema, err := GenerateSchema(m)
	if err != nil {
		t.Fatalf("GenerateSchema() error = %v", err)
	}

	req := GraphQLRequest{Query: `{ assets(session: "x") { ports { id } } }`}
	result := Execute(context.Background(), schema, req, 2)
	if !result.HasErrors() {
		t.Fatal("Expected depth error")
	}
	if !strings.Contains(result.Errors[0].Message, "exceeds maximum allowed depth") {
		t.Errorf("Unexpected error: %s", result.Errors[0].Message)
	}

	// without a limit the query reaches the resolver and fails on the session
	result = Execute(context.Background(), schema, req, 0)
	if !result.HasErrors() || !strings.Contains(result.Errors[0].Message, "not found") {
		t.Errorf("Expected unknown session error, got %v", result.Errors)
	}
}
