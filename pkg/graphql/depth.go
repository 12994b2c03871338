package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// DefaultMaxDepth allows asset -> ports -> scalar and nothing deeper
const DefaultMaxDepth = 3

// QueryDepth parses query and returns the deepest field nesting over all of
// its operations. Leaf fields count as a level, introspection fields are
// ignored and named fragments are expanded where they are spread.
func QueryDepth(query string) (int, error) {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return 0, fmt.Errorf("failed to parse query: %w", err)
	}

	w := depthWalker{
		fragments: make(map[string]*ast.FragmentDefinition),
		expanding: make(map[string]bool),
	}
	for _, def := range doc.Definitions {
		if frag, ok := def.(*ast.FragmentDefinition); ok && frag.Name != nil {
			w.fragments[frag.Name.Value] = frag
		}
	}

	deepest := 0
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			deepest = max(deepest, w.depth(op.SelectionSet))
		}
	}
	return deepest, nil
}

// CheckDepth fails queries nested deeper than maxDepth
func CheckDepth(query string, maxDepth int) error {
	depth, err := QueryDepth(query)
	if err != nil {
		return err
	}
	if depth > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth %d", depth, maxDepth)
	}
	return nil
}

type depthWalker struct {
	fragments map[string]*ast.FragmentDefinition
	expanding map[string]bool // guards self-referencing fragments
}

func (w *depthWalker) depth(set *ast.SelectionSet) int {
	if set == nil {
		return 0
	}
	deepest := 0
	for _, selection := range set.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			if sel.Name != nil && strings.HasPrefix(sel.Name.Value, "__") {
				continue
			}
			deepest = max(deepest, 1+w.depth(sel.SelectionSet))
		case *ast.InlineFragment:
			deepest = max(deepest, w.depth(sel.SelectionSet))
		case *ast.FragmentSpread:
			if sel.Name == nil {
				continue
			}
			name := sel.Name.Value
			frag, ok := w.fragments[name]
			if !ok || w.expanding[name] {
				continue
			}
			w.expanding[name] = true
			deepest = max(deepest, w.depth(frag.SelectionSet))
			delete(w.expanding, name)
		}
	}
	return deepest
}
