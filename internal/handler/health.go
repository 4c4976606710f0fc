package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// HealthHandler exposes liveness and readiness probes. Liveness never touches
// a dependency; readiness checks every backing store and reports them all,
// so an operator sees which one is down instead of just the first failure.
type HealthHandler struct {
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	amqpConn    *amqp.Connection
}

func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{dbPool: dbPool, redisClient: redisClient, amqpConn: amqpConn}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "marketplace-api"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()
	ready := true
	deps := gin.H{"postgres": "ok", "redis": "ok", "rabbitmq": "ok"}

	if err := h.dbPool.Ping(ctx); err != nil {
		deps["postgres"] = err.Error()
		ready = false
	}
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		deps["redis"] = err.Error()
		ready = false
	}
	if h.amqpConn.IsClosed() {
		deps["rabbitmq"] = "connection closed"
		ready = false
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "dependencies": deps})
}
