package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"portflow/docs/schema/openapi"
	"portflow/internal/core"
	"portflow/internal/infra/persistence/memory"
)

func TestDocumentCoversRoutes(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]any `yaml:"paths"`
	}
	require.NoError(t, yaml.Unmarshal(openapi.Document, &doc))

	srv, err := NewServer(Dependencies{Service: core.NewService(memory.NewStore())}, Options{Registry: prometheus.NewRegistry()})
	require.NoError(t, err)

	var checked int
	err = srv.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			// PathPrefix routes carry no methods of their own.
			return nil
		}
		ops, ok := doc.Paths[tpl]
		if !assert.Truef(t, ok, "path %s is not documented", tpl) {
			return nil
		}
		for _, m := range methods {
			_, ok := ops[strings.ToLower(m)]
			assert.Truef(t, ok, "%s %s is not documented", m, tpl)
			checked++
		}
		return nil
	})
	require.NoError(t, err)
	assert.Greater(t, checked, 60)
}

func TestServeDocument(t *testing.T) {
	f := newFixture(t, func(_ *Dependencies, o *Options) { o.AuthRequired = true })
	rec := f.do(t, http.MethodGet, DocumentPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Equal(t, openapi.Document, rec.Body.Bytes())
}
