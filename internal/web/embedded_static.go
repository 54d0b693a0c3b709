package web

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed static
var EmbeddedStaticFS embed.FS

//go:embed templates/*.html
var EmbeddedTemplatesFS embed.FS

// staticFS returns the static asset root: dir when set, the embedded files otherwise
func staticFS(dir string) fs.FS {
	if dir != "" {
		log.Printf("[WEB]: Serving static files from %s", dir)
		return os.DirFS(dir)
	}
	sub, err := fs.Sub(EmbeddedStaticFS, "static")
	if err != nil {
		panic("Failed to create embedded static filesystem: " + err.Error())
	}
	return sub
}

// templateFS returns the template root: dir when set, the embedded templates otherwise
func templateFS(dir string) fs.FS {
	if dir != "" {
		log.Printf("[WEB]: Loading templates from %s", dir)
		return os.DirFS(dir)
	}
	sub, err := fs.Sub(EmbeddedTemplatesFS, "templates")
	if err != nil {
		panic("Failed to create embedded template filesystem: " + err.Error())
	}
	return sub
}

// ListEmbeddedFiles returns a list of all embedded static files for debugging
func ListEmbeddedFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(EmbeddedStaticFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// StaticHandler returns a Gin handler serving files of root below prefix
func StaticHandler(root fs.FS, prefix string) gin.HandlerFunc {
	fileServer := http.FileServer(http.FS(root))

	return func(c *gin.Context) {
		path := strings.TrimPrefix(c.Request.URL.Path, prefix)
		if path == "" || path == "/" {
			// Static directories have no index file
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		// http.FileServer resolves against the root, keep the prefix directory
		c.Request.URL.Path = prefix + path

		c.Header("Cache-Control", "public, max-age=3600") // browser caches an hour
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
