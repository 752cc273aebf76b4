package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/clovigo/internal/pkg/config"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/jwt"
	"github.com/shandysiswandi/clovigo/internal/pkg/uid"
)

const testModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

type fakeJWT struct{}

func (fakeJWT) Issue(jwt.Subject) (jwt.Pair, error) { return jwt.Pair{}, nil }

func (fakeJWT) Verify(token string, kind jwt.Kind) (jwt.Claims, error) {
	switch token {
	case "customer-token":
		return jwt.Claims{UserID: 1, Username: "alice", Role: "customer", Kind: kind}, nil
	case "seller-token":
		return jwt.Claims{UserID: 2, Username: "bob", Role: "seller", Kind: kind}, nil
	default:
		return jwt.Claims{}, jwt.ErrInvalidToken
	}
}

type payload struct {
	Name string `json:"name"`
}

func (payload) Message() string      { return "created" }
func (payload) StatusCode() int      { return http.StatusCreated }
func (payload) Meta() map[string]any { return map[string]any{"version": "1"} }

func newTestRouter(t *testing.T, cfgYAML string) *Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(cfgYAML))
	require.NoError(t, err)

	m, err := model.NewModelFromString(testModel)
	require.NoError(t, err)
	e, err := casbin.NewEnforcer(m)
	require.NoError(t, err)
	_, err = e.AddPolicy("customer", "accounts.profile", "read")
	require.NoError(t, err)

	return NewRouter(Config{
		Config:     cfg,
		UUID:       uid.NewUUID(),
		JWT:        fakeJWT{},
		Instrument: instrument.NewNoop(),
		Enforcer:   e,
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouter_SuccessEnvelope(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.PublicPOST("/things/", func(req *Request) (any, error) {
		var in payload
		if err := req.DecodeBody(&in); err != nil {
			return nil, err
		}
		return in, nil
	})

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/things/", strings.NewReader(`{"name":"x"}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderCorrelationID))
	body := decode(t, rec)
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, map[string]any{"name": "x"}, body["data"])
	assert.Equal(t, map[string]any{"version": "1"}, body["meta"])
}

func TestRouter_DecodeBodyRejectsUnknownFields(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.PublicPOST("/things/", func(req *Request) (any, error) {
		var in payload
		return nil, req.DecodeBody(&in)
	})

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/things/", strings.NewReader(`{"name":"x","extra":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/things/", strings.NewReader(`{"name":"x"}{"name":"y"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.PublicGET("/business", func(*Request) (any, error) {
		return nil, goerror.NewBusinessCause(errors.New("locked"), "Too many OTP requests", goerror.CodeTooManyRequest,
			"retry_at", "2026-01-01T01:00:00Z")
	})
	r.PublicGET("/plain", func(*Request) (any, error) {
		return nil, errors.New("database exploded")
	})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/business", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Too many OTP requests", body["message"])
	assert.Equal(t, map[string]any{"retry_at": "2026-01-01T01:00:00Z"}, body["error"])

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["message"])
}

func TestRouter_NoContent(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.PublicGET("/empty", func(*Request) (any, error) { return nil, nil })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/empty", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_AuthenticationAndAuthorization(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.GET("/me", func(req *Request) (any, error) {
		return map[string]string{"username": jwt.GetAuth(req.Context()).Username}, nil
	}, r.Authorize("accounts.profile", "read"))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing token", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "role not allowed", header: "Bearer seller-token", want: http.StatusForbidden},
		{name: "allowed", header: "bearer customer-token", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(r, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_Maintenance(t *testing.T) {
	r := newTestRouter(t, "app:\n  maintenance:\n    endpoints: /down\n")
	r.PublicGET("/down", func(*Request) (any, error) { return map[string]string{}, nil })
	r.PublicGET("/up", func(*Request) (any, error) { return map[string]string{}, nil })

	assert.Equal(t, http.StatusServiceUnavailable, serve(r, httptest.NewRequest(http.MethodGet, "/down", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/up", nil)).Code)
}

func TestRouter_RecoversPanic(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.PublicGET("/panic", func(*Request) (any, error) { panic("boom") })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["message"])
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.PublicGET("/only-get", func(*Request) (any, error) { return map[string]string{}, nil })

	assert.Equal(t, http.StatusNotFound, serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil)).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(r, httptest.NewRequest(http.MethodDelete, "/only-get", nil)).Code)
}

func TestRouter_CorrelationIDPropagates(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.PublicGET("/cid", func(*Request) (any, error) { return map[string]string{}, nil })

	req := httptest.NewRequest(http.MethodGet, "/cid", nil)
	req.Header.Set(HeaderRequestID, "  req-42 ")
	rec := serve(r, req)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderCorrelationID))
}

func TestRequest_Multipart(t *testing.T) {
	r := newTestRouter(t, "app: {}")
	r.PublicPOST("/upload", func(req *Request) (any, error) {
		if err := req.ParseMultipart(1 << 20); err != nil {
			return nil, err
		}
		f, err := req.FormFile("file_gst")
		if err != nil {
			return nil, err
		}
		missing, err := req.FormFile("file_pan")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return map[string]any{
			"gst_no":   req.FormString("gst_no"),
			"filename": f.Filename,
			"size":     f.Size,
			"missing":  missing == nil,
		}, nil
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("gst_no", " 22AAAAA0000A1Z5 "))
	fw, err := mw.CreateFormFile("file_gst", "gst.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(r, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "22AAAAA0000A1Z5", data["gst_no"])
	assert.Equal(t, "gst.pdf", data["filename"])
	assert.InDelta(t, 8, data["size"], 0)
	assert.Equal(t, true, data["missing"])

	plain := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("{}"))
	plain.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, serve(r, plain).Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(req))

	req.Header.Set("True-Client-IP", "not-an-ip")
	assert.Equal(t, "198.51.100.2", clientIP(req))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") }),
		mw("outer"), nil, mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
