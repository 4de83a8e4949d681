package http

import (
	"strconv"
	"time"

	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/gin-gonic/gin"
)

func Metrics(prom *observability.Prom) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if prom == nil {
			ctx.Next()
			return
		}

		start := time.Now()

		ctx.Next()

		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		status := strconv.Itoa(ctx.Writer.Status())

		prom.RequestsTotal.WithLabelValues(method, route, status).Inc()
		prom.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}
