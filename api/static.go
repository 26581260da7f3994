package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// Static serves the participant client from dir. Directory paths resolve
// to index; unknown files are 404.
func Static(dir, index string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusNotFound)
			return
		}

		clean := path.Clean("/" + c.Request.URL.Path)
		if strings.HasSuffix(clean, "/") {
			clean += index
		}
		file := filepath.Join(dir, filepath.FromSlash(clean))

		info, err := os.Stat(file)
		if err == nil && info.IsDir() {
			file = filepath.Join(file, index)
			info, err = os.Stat(file)
		}
		if err != nil || info.IsDir() {
			c.Status(http.StatusNotFound)
			return
		}
		c.File(file)
	}
}
