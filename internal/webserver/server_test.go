package webserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/cookbook/config"
)

type samplePayload struct {
	Name string `json:"name" validate:"required"`
}

func newTestServer(basePath string) *Server {
	return NewServer(config.WebConfig{BasePath: basePath}, false)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer("")
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestApiRoutesUseBasePath(t *testing.T) {
	srv := newTestServer("/api/v1/")
	srv.ApiGET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"pong": "yes"})
	})

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pong":"yes"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}

func TestBindAndValidate(t *testing.T) {
	srv := newTestServer("")
	srv.ApiPOST("/things", func(c echo.Context) error {
		var p samplePayload
		if err := c.Bind(&p); err != nil {
			return err
		}
		if err := c.Validate(&p); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusCreated, p)
	})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"valid", `{"name":"pie"}`, http.StatusCreated, ""},
		{"missing field", `{}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"malformed", `{"name":`, http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			srv.Echo().ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Contains(t, rec.Body.String(), `"code":"`+tt.code+`"`)
			}
		})
	}
}

func TestPanicIsRecovered(t *testing.T) {
	srv := newTestServer("")
	srv.ApiGET("/boom", func(c echo.Context) error {
		panic("boom")
	})
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(config.WebConfig{MetricsEnable: true}, false)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cookbook_requests_total")
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, "INVALID_REQUEST", codeForStatus(http.StatusBadRequest))
	assert.Equal(t, "CONFLICT", codeForStatus(http.StatusConflict))
	assert.Equal(t, "INTERNAL_ERROR", codeForStatus(http.StatusBadGateway))
	assert.Equal(t, "REQUEST_ERROR", codeForStatus(http.StatusTeapot))
}
