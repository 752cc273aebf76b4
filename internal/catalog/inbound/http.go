package inbound

import (
	_ "embed"
	"net/http"

	"go.uber.org/atomic"

	"github.com/shandysiswandi/clovigo/internal/pkg/router"
)

//go:embed openapi.yaml
var openAPIDocument []byte

const (
	PathSchema  = "/api/schema/"
	PathCatalog = "/api/catalog/main/"
	PathRedoc   = "/api/catalog/redoc/"
)

// RegisterHTTPEndpoint mounts the service index, the health probe and the
// API document. ready reports whether the process accepts traffic.
func RegisterHTTPEndpoint(r *router.Router, ready *atomic.Bool) {
	end := &HTTPEndpoint{ready: ready, document: openAPIDocument}

	r.PublicRaw(http.MethodGet, "/", http.HandlerFunc(end.Index))
	r.PublicRaw(http.MethodGet, "/health", http.HandlerFunc(end.Health))
	r.PublicRaw(http.MethodGet, PathSchema, http.HandlerFunc(end.Schema))
	r.PublicRaw(http.MethodGet, PathCatalog, http.HandlerFunc(end.Catalog))
	r.PublicRaw(http.MethodGet, PathRedoc, http.HandlerFunc(end.Catalog))
}
