package router

import (
	"net/http"
	"strings"

	"github.com/casbin/casbin/v3"

	"github.com/shandysiswandi/clovigo/internal/pkg/jwt"
)

func middlewareAuthentication(verifier jwt.JWT) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(token), jwt.KindAccess)
			if err != nil {
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}

func middlewareAuthorization(enforcer *casbin.Enforcer, obj, act string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clm := jwt.GetAuth(r.Context())
			if clm == nil {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			allowed, err := enforcer.Enforce(clm.Role, obj, act)
			if err != nil {
				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
				return
			}
			if !allowed {
				writeJSON(w, errorResponse{Message: "You do not have access to this resource"}, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
