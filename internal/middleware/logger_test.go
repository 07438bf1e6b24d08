package middleware

import (
	"bytes"
	"net/http"
	"os"
	"testing"

	"github.com/gcforum/portal/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/broken", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	tests := []struct {
		path  string
		level string
	}{
		{"/ok", "level=info"},
		{"/missing", "level=warning"},
		{"/broken", "level=error"},
	}

	for _, tt := range tests {
		buf.Reset()
		get(r, tt.path)
		out := buf.String()
		assert.Contains(t, out, tt.level, tt.path)
		assert.Contains(t, out, "path="+tt.path)
		assert.Contains(t, out, "method=GET")
	}
}
