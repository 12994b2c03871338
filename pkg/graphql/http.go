package graphql

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
)

// GraphQLRequest is one operation as posted by a client
type GraphQLRequest struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// GraphQLResponse is the JSON envelope returned for every executed request
type GraphQLResponse struct {
	Data   any            `json:"data,omitempty"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError is one execution or validation error
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

var (
	errMissingQuery = errors.New("missing query")
	errMethod       = errors.New("method not allowed")
)

// GraphQLHandler serves the read schema over HTTP. POST takes a JSON
// GraphQLRequest; GET takes query, variables and operationName parameters.
type GraphQLHandler struct {
	schema   graphql.Schema
	maxDepth int
	logger   logging.Logger
}

// NewGraphQLHandler creates a handler enforcing DefaultMaxDepth
func NewGraphQLHandler(schema graphql.Schema, logger logging.Logger) *GraphQLHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GraphQLHandler{
		schema:   schema,
		maxDepth: DefaultMaxDepth,
		logger:   logger.With(logging.Component("graphql")),
	}
}

// SetMaxDepth overrides the depth limit; non-positive values are ignored
func (h *GraphQLHandler) SetMaxDepth(n int) *GraphQLHandler {
	if n > 0 {
		h.maxDepth = n
	}
	return h
}

func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errMethod) {
			w.Header().Set("Allow", "GET, POST")
			status = http.StatusMethodNotAllowed
		}
		http.Error(w, err.Error(), status)
		return
	}

	result := Execute(r.Context(), h.schema, req, h.maxDepth)

	response := GraphQLResponse{Data: result.Data}
	for _, e := range result.Errors {
		response.Errors = append(response.Errors, GraphQLError{Message: e.Message, Path: e.Path})
	}
	if len(response.Errors) > 0 {
		h.logger.Debug("query returned errors",
			logging.Count(len(response.Errors)),
			logging.String("first", response.Errors[0].Message))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Warn("failed to write response", logging.Error(err))
	}
}

func decodeRequest(r *http.Request) (GraphQLRequest, error) {
	var req GraphQLRequest
	switch r.Method {
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, errors.New("invalid request body")
		}
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return req, errors.New("invalid variables parameter")
			}
		}
	default:
		return req, errMethod
	}
	if req.Query == "" {
		return req, errMissingQuery
	}
	return req, nil
}
