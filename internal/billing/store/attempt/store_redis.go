package attempt

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "patientflow/pkg/domain"
)

// attemptTTL caps how long a stale counter lingers after the last dispatch.
const attemptTTL = 7 * 24 * time.Hour

// Redis persists attempt counters so retry ceilings survive restarts.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func attemptKey(patientID id.PatientID) string {
	return "billing:attempts:" + patientID.String()
}

func (s *Redis) Incr(ctx context.Context, patientID id.PatientID) (int, error) {
	key := attemptKey(patientID)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr billing attempts: %w", err)
	}
	// Refresh the TTL on every dispatch; counters for abandoned patients age out.
	if err := s.client.Expire(ctx, key, attemptTTL).Err(); err != nil {
		return int(count), fmt.Errorf("expire billing attempts: %w", err)
	}
	return int(count), nil
}

func (s *Redis) Get(ctx context.Context, patientID id.PatientID) (int, error) {
	count, err := s.client.Get(ctx, attemptKey(patientID)).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("get billing attempts: %w", err)
	}
	return count, nil
}

func (s *Redis) Reset(ctx context.Context, patientID id.PatientID) error {
	if err := s.client.Del(ctx, attemptKey(patientID)).Err(); err != nil {
		return fmt.Errorf("reset billing attempts: %w", err)
	}
	return nil
}
