// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(OpenAPISpec())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

func TestOpenAPI_DocumentIsValid(t *testing.T) {
	doc := loadOpenAPI(t)
	assert.Equal(t, "capturerelay", doc.Info.Title)
}

// Every registered route is documented and every documented path is routed.
func TestOpenAPI_MatchesRouter(t *testing.T) {
	doc := loadOpenAPI(t)

	srv := New(Config{}, Deps{Auth: &fakeAuth{}, Catalog: &fakeCatalog{}, Relay: &fakeRelay{}})
	router, ok := srv.routes().(chi.Routes)
	require.True(t, ok)

	var routed []string
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routed = append(routed, method+" "+strings.TrimSuffix(route, "/"))
		return nil
	})
	require.NoError(t, err)

	var documented []string
	for path, item := range doc.Paths.Map() {
		for method := range item.Operations() {
			documented = append(documented, method+" "+path)
		}
	}

	sort.Strings(routed)
	sort.Strings(documented)
	assert.Equal(t, documented, routed)
}

func TestOpenAPI_ProblemCodesDocumented(t *testing.T) {
	doc := loadOpenAPI(t)
	schema := doc.Components.Schemas["Problem"]
	require.NotNil(t, schema)
	for _, field := range []string{"type", "title", "status", "code"} {
		assert.Contains(t, schema.Value.Required, field)
	}
}
