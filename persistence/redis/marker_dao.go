package redis

import (
	"context"

	"github.com/praxida/careflow/persistence"
)

var _ persistence.MarkerStore = new(redisMarkerStore)

type redisMarkerStore struct {
	*baseDao
}

func NewRedisMarkerStore(baseDao *baseDao) *redisMarkerStore {
	return &redisMarkerStore{baseDao: baseDao}
}

func (r *redisMarkerStore) MarkOnce(kind string, key string) (bool, error) {
	ctx := context.Background()
	set, err := r.redisClient.SetNX(ctx, r.getNamespaceKey("MARK", kind, key), 1, 0).Result()
	if err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	return set, nil
}
