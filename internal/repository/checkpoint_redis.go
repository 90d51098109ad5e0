package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minhlq/Quokka/config"
	"github.com/minhlq/Quokka/internal/model"
	"github.com/redis/go-redis/v9"
)

// CheckpointStore is the fast, best-effort tier of the autosave protocol: a
// key-value snapshot of the in-progress answer set, keyed by attempt id. It
// is a convenience cache, never the source of truth; on resume the durable
// store always wins over it.
type CheckpointStore interface {
	Get(attemptID uint) ([]model.AttemptAnswer, error)
	Set(attemptID uint, answers []model.AttemptAnswer) error
	Delete(attemptID uint) error
}

const checkpointTTL = 24 * time.Hour

type redisCheckpointStore struct {
	rdb *redis.Client
	ctx context.Context
}

func NewRedisCheckpointStore(cfg *config.Config) CheckpointStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &redisCheckpointStore{rdb: rdb, ctx: context.Background()}
}

func checkpointKey(attemptID uint) string {
	return fmt.Sprintf("attempt:%d:answers", attemptID)
}

func (s *redisCheckpointStore) Get(attemptID uint) ([]model.AttemptAnswer, error) {
	raw, err := s.rdb.Get(s.ctx, checkpointKey(attemptID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var answers []model.AttemptAnswer
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (s *redisCheckpointStore) Set(attemptID uint, answers []model.AttemptAnswer) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	return s.rdb.Set(s.ctx, checkpointKey(attemptID), data, checkpointTTL).Err()
}

func (s *redisCheckpointStore) Delete(attemptID uint) error {
	return s.rdb.Del(s.ctx, checkpointKey(attemptID)).Err()
}
