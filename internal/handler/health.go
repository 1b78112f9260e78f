package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// BackendPinger is satisfied by the REST client.
type BackendPinger interface {
	Ping(ctx context.Context) error
	CircuitState() string
}

// Health returns a JSON health check response.
// Checks the REST backend and, when configured, Redis; never exposes
// credentials or internals.
func Health(backend BackendPinger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		backendStatus := "connected"
		if backend.Ping(ctx) != nil {
			backendStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		status := http.StatusOK
		if backendStatus != "connected" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":      status == http.StatusOK,
			"backend": backendStatus,
			"redis":   redisStatus,
			"circuit": backend.CircuitState(),
		})
	}
}
