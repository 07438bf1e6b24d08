package middleware

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gcforum/portal/internal/cache"
	"github.com/gin-gonic/gin"
)

// FallbackHeader marks a response built from the built-in dataset. Such
// responses are never cached, so the live data shows up as soon as the
// store is back.
const FallbackHeader = "X-Data-Source"

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// PageCache serves GET responses from store and records fresh 200s under
// the given dependency tags. Mutations invalidate by tag. Responses
// marked no-store are passed through.
func PageCache(store cache.Store, tags ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		ctx := c.Request.Context()
		if entry, ok := store.Get(ctx, key); ok {
			c.Header("X-Cache", "HIT")
			c.Data(entry.Status, entry.ContentType, entry.Body)
			c.Abort()
			return
		}

		w := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Header("X-Cache", "MISS")

		c.Next()

		if w.Status() != http.StatusOK || w.Header().Get(FallbackHeader) == "fallback" ||
			strings.Contains(w.Header().Get("Cache-Control"), "no-store") {
			return
		}
		store.Set(ctx, key, &cache.Entry{
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}, tags)
	}
}
