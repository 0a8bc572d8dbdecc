package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"checkout-service/internal/metrics"
)

// CORS allows browser checkouts from any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+signatureHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func NewRouter(h *Handler, m *metrics.ServerMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), CORS())
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	h.RegisterRoutes(r)
	return r
}
