package health

import (
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var startedAt = time.Now()

type Handlers struct {
	DB  *gorm.DB
	Rdb *redis.Client
}

// JSON GET /health/json — dependency status for ops probes.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	deps := fiber.Map{
		"database": h.databaseStatus(c),
		"redis":    h.redisStatus(c),
	}
	status := "ok"
	for _, v := range deps {
		if v != "connected" {
			status = "degraded"
		}
	}
	return c.JSON(fiber.Map{
		"status": status,
		"runtime": fiber.Map{
			"uptimeSeconds": int64(time.Since(startedAt).Seconds()),
			"goVersion":     runtime.Version(),
		},
		"dependencies": deps,
	})
}

func (h *Handlers) databaseStatus(c *fiber.Ctx) string {
	if h.DB == nil {
		return "not configured"
	}
	sqlDB, err := h.DB.DB()
	if err != nil || sqlDB.PingContext(c.Context()) != nil {
		return "disconnected"
	}
	return "connected"
}

func (h *Handlers) redisStatus(c *fiber.Ctx) string {
	if h.Rdb == nil {
		return "not configured"
	}
	if err := h.Rdb.Ping(c.Context()).Err(); err != nil {
		return "disconnected"
	}
	return "connected"
}
