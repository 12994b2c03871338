package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

// Execute runs req against schema. Queries nested deeper than maxDepth are
// refused before execution; a non-positive maxDepth disables the check.
func Execute(ctx context.Context, schema graphql.Schema, req GraphQLRequest, maxDepth int) *graphql.Result {
	if maxDepth > 0 {
		if err := CheckDepth(req.Query, maxDepth); err != nil {
			return &graphql.Result{Errors: []gqlerrors.FormattedError{gqlerrors.FormatError(err)}}
		}
	}
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}
