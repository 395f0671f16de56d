package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
)

// Snapshot 是写入本地回退缓存的最后一份已知良好状态
type Snapshot struct {
	Assignments  []*domain.Assignment `json:"assignments"`
	SelectedDate string               `json:"selectedDate"`
	Timestamp    time.Time            `json:"timestamp"`
}

// FallbackCache 在完全没有连接时支撑初次加载。
// 任何一次成功的远端加载都会立即取代缓存内容，缓存永远不是权威数据。
type FallbackCache interface {
	Save(snapshot *Snapshot) error
	Load(date string) (*Snapshot, error)
}

type RedisFallbackCache struct {
	cfg *config.Config
	rdb *redis.Client
}

func NewRedisFallbackCache(cfg *config.Config, rdb *redis.Client) *RedisFallbackCache {
	return &RedisFallbackCache{
		cfg: cfg,
		rdb: rdb,
	}
}

func (c *RedisFallbackCache) key(date string) string {
	return fmt.Sprintf("shift_planner:fallback:%s", date)
}

func (c *RedisFallbackCache) Save(snapshot *Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.cfg.Redis.ConnectTimeout)*time.Second)
	defer cancel()

	ttl := time.Duration(c.cfg.Coordinator.FallbackCacheTTL) * time.Second
	return c.rdb.Set(ctx, c.key(snapshot.SelectedDate), data, ttl).Err()
}

func (c *RedisFallbackCache) Load(date string) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(c.cfg.Redis.ConnectTimeout)*time.Second)
	defer cancel()

	data, err := c.rdb.Get(ctx, c.key(date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	snapshot := &Snapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, err
	}

	return snapshot, nil
}
