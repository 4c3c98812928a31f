package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocCoversRoutes(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var spec struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &spec), doc)

	routes := map[string][]string{
		"/credit/balance":               {"get"},
		"/ledger":                       {"get"},
		"/credit-requests/mine":         {"get"},
		"/credit-requests":              {"get", "post"},
		"/transactions":                 {"get", "post"},
		"/sellers":                      {"get", "post"},
		"/sellers/{id}":                 {"get", "put", "delete"},
		"/sellers/{id}/ledger":          {"get"},
		"/sellers/{id}/reconcile":       {"get"},
		"/credit-requests/{id}/approve": {"post"},
		"/credit-requests/{id}/reject":  {"post"},
		"/phone-numbers":                {"post"},
		"/phone-numbers/{phone}":        {"delete"},
	}
	for path, methods := range routes {
		for _, method := range methods {
			assert.Contains(t, spec.Paths[path], method, "%s %s", method, path)
		}
	}
	assert.Len(t, spec.Paths, len(routes))
}
