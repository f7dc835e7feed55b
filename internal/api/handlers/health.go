package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ledgerly/reportflow/internal/api/dto"
)

const pingTimeout = 2 * time.Second

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewHealthHandler checks the given dependencies. Either may be nil.
func NewHealthHandler(db *gorm.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := h.check(r.Context())

	status, code := "healthy", http.StatusOK
	for _, result := range checks {
		if result != "ok" && result != "not configured" {
			status, code = "unhealthy", http.StatusServiceUnavailable
			break
		}
	}

	dto.JSON(w, code, map[string]interface{}{
		"status":  status,
		"service": "reportflow-api",
		"checks":  checks,
	})
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	dto.OK(w, map[string]string{"status": "alive"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.pingDB(r.Context()); err != nil {
		dto.ErrorResponse(w, http.StatusServiceUnavailable, "database not ready: "+err.Error())
		return
	}
	if err := h.pingRedis(r.Context()); err != nil {
		dto.ErrorResponse(w, http.StatusServiceUnavailable, "redis not ready: "+err.Error())
		return
	}
	dto.OK(w, map[string]string{"status": "ready"})
}

func (h *HealthHandler) check(ctx context.Context) map[string]string {
	checks := map[string]string{
		"database": "not configured",
		"redis":    "not configured",
	}
	if h.db != nil {
		checks["database"] = result(h.pingDB(ctx))
	}
	if h.redis != nil {
		checks["redis"] = result(h.pingRedis(ctx))
	}
	return checks
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (h *HealthHandler) pingRedis(ctx context.Context) error {
	if h.redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.redis.Ping(ctx).Err()
}

func result(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
