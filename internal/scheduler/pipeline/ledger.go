package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerly/reportflow/internal/domain/models"
	pkgredis "github.com/ledgerly/reportflow/internal/pkg/redis"
)

// RedisLedger stores one idempotency key per schedule and due slot.
type RedisLedger struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *pkgredis.Client, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisLedger{client: client, ttl: ttl}
}

func DeliveryKey(s *models.ReportSchedule) string {
	var slot int64
	if s.NextRunAt != nil {
		slot = s.NextRunAt.Unix()
	}
	return fmt.Sprintf("delivery:%s:%d", s.ID, slot)
}

func (l *RedisLedger) Delivered(ctx context.Context, s *models.ReportSchedule) (bool, error) {
	return l.client.HasIdempotencyKey(ctx, DeliveryKey(s))
}

func (l *RedisLedger) MarkDelivered(ctx context.Context, s *models.ReportSchedule) error {
	return l.client.SetIdempotencyKey(ctx, DeliveryKey(s), time.Now().UTC().Format(time.RFC3339), l.ttl)
}
