package server

import (
	"context"
	"net/http"
	"time"

	"flatup/internal/api"
	"flatup/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// Health godoc
// @Summary      Health check
// @Description  Reports database and Redis reachability
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.HealthResponse
// @Router       /health [get]
func Health(db pinger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp := api.HealthResponse{Status: "ok", Database: "ok", Redis: "ok"}
		code := http.StatusOK

		if err := db.PingContext(ctx); err != nil {
			logger.Warn("health: database unreachable", "error", err)
			resp.Status, resp.Database, code = "degraded", "unreachable", http.StatusServiceUnavailable
		}
		// email delivery only degrades when redis is down
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("health: redis unreachable", "error", err)
			resp.Redis = "unreachable"
			if code == http.StatusOK {
				resp.Status = "degraded"
			}
		}

		c.JSON(code, resp)
	}
}

// Metrics godoc
// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
