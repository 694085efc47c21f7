package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/greenroute/greenroute/internal/api/middleware"
)

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{name: "json body", method: http.MethodPut, body: `{"value":"a"}`, contentType: "application/json", want: http.StatusOK},
		{name: "json with charset", method: http.MethodPut, body: `{"value":"a"}`, contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "no content type", method: http.MethodPut, body: `{"value":"a"}`, want: http.StatusOK},
		{name: "form body", method: http.MethodPut, body: "value=a", contentType: "application/x-www-form-urlencoded", want: http.StatusUnsupportedMediaType},
		{name: "json prefix lookalike", method: http.MethodPost, body: "{}", contentType: "application/jsonp", want: http.StatusUnsupportedMediaType},
		{name: "bodiless search", method: http.MethodPost, contentType: "text/plain", want: http.StatusOK},
		{name: "get ignored", method: http.MethodGet, contentType: "text/plain", want: http.StatusOK},
	}

	handler := middleware.RequireJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/sessions/ses_1/origin", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnsupportedMediaType {
				assert.Contains(t, w.Header().Get("Content-Type"), "application/problem+json")
			}
		})
	}
}

func TestContentTypeJSON_DefaultsResponseType(t *testing.T) {
	handler := middleware.ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}
