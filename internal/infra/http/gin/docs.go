package ginserver

import (
	"bytes"
	"embed"
	"net/http"

	gin "github.com/gin-gonic/gin"
)

//go:embed swagger/openapi.json swagger/index.html
var docsFS embed.FS

const docsSpecPath = "/docs/openapi.json"

// registerDocs serves the OpenAPI document and a Swagger UI page loading it.
// Both live outside /api/v1 so the rate limiter never applies.
func registerDocs(router gin.IRoutes) {
	spec := mustReadDoc("swagger/openapi.json")
	page := bytes.ReplaceAll(mustReadDoc("swagger/index.html"), []byte("{{SPEC_URL}}"), []byte(docsSpecPath))

	router.GET(docsSpecPath, func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "application/json", spec)
	})
	router.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	})
}

func mustReadDoc(name string) []byte {
	data, err := docsFS.ReadFile(name)
	if err != nil {
		panic("ginserver: embedded doc missing: " + name)
	}
	return data
}
