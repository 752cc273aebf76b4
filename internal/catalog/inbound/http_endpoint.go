package inbound

import (
	"net/http"
	"strings"

	"go.uber.org/atomic"

	"github.com/shandysiswandi/clovigo/internal/pkg/router"
)

type HTTPEndpoint struct {
	ready    *atomic.Bool
	document []byte
}

type IndexResponse struct {
	Message string `json:"message"`
	Catalog string `json:"catalog"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (h *HTTPEndpoint) Index(w http.ResponseWriter, r *http.Request) {
	router.WriteJSON(w, IndexResponse{
		Message: "Welcome to CloviGo API",
		Catalog: requestScheme(r) + "://" + r.Host + PathCatalog,
	}, http.StatusOK)
}

func (h *HTTPEndpoint) Health(w http.ResponseWriter, _ *http.Request) {
	if !h.ready.Load() {
		router.WriteJSON(w, HealthResponse{Status: "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	router.WriteJSON(w, HealthResponse{Status: "ok"}, http.StatusOK)
}

func (h *HTTPEndpoint) Schema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.document)
}

func (h *HTTPEndpoint) Catalog(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, PathSchema, http.StatusFound)
}

// requestScheme honours X-Forwarded-Proto set by a TLS-terminating proxy.
func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		proto, _, _ = strings.Cut(proto, ",")
		if proto = strings.ToLower(strings.TrimSpace(proto)); proto == "http" || proto == "https" {
			return proto
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
