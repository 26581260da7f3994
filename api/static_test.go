package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestStatic(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "default.html"), []byte("<h1>auction</h1>"), 0o644))
	assert.NoError(t, os.MkdirAll(filepath.Join(dir, "js"), 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "js", "client.js"), []byte("connect()"), 0o644))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.NoRoute(Static(dir, "default.html"))

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/", http.StatusOK, "<h1>auction</h1>"},
		{"/default.html", http.StatusOK, "<h1>auction</h1>"},
		{"/js/client.js", http.StatusOK, "connect()"},
		{"/missing.css", http.StatusNotFound, ""},
		{"/../../etc/passwd", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			check.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				check.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
