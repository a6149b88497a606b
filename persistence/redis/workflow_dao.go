package redis

import (
	"context"
	"errors"
	"strconv"

	rd "github.com/go-redis/redis/v9"
	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence"
	"github.com/praxida/careflow/util"
	"go.uber.org/zap"
)

const WORKFLOW_DEF_KEY string = "WFDEF"
const WORKFLOW_NAMES_KEY string = "WFNAMES"
const WORKFLOW_ACTIVE_KEY string = "WFACTIVE"
const LATEST_FIELD string = "latest"

var _ persistence.WorkflowStorage = new(redisWorkflowStorage)

type redisWorkflowStorage struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.WorkflowDefinition]
}

func NewRedisWorkflowStorage(baseDao *baseDao, encoderDecoder util.EncoderDecoder[model.WorkflowDefinition]) *redisWorkflowStorage {
	return &redisWorkflowStorage{
		baseDao:        baseDao,
		encoderDecoder: encoderDecoder,
	}
}

func (r *redisWorkflowStorage) Save(def *model.WorkflowDefinition) (*model.WorkflowDefinition, error) {
	key := r.getNamespaceKey(WORKFLOW_DEF_KEY, def.Name)
	ctx := context.Background()
	latest, err := r.redisClient.HGet(ctx, key, LATEST_FIELD).Int()
	if err != nil && !errors.Is(err, rd.Nil) {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	saved := *def
	saved.Version = latest + 1
	data, err := r.encoderDecoder.Encode(saved)
	if err != nil {
		return nil, err
	}
	_, err = r.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.HSet(ctx, key, strconv.Itoa(saved.Version), string(data))
		pipe.HSet(ctx, key, LATEST_FIELD, saved.Version)
		pipe.SAdd(ctx, r.getNamespaceKey(WORKFLOW_NAMES_KEY), def.Name)
		pipe.HSet(ctx, r.getNamespaceKey(WORKFLOW_ACTIVE_KEY), def.Name, boolToInt(def.Active))
		return nil
	})
	if err != nil {
		logger.Error("error saving workflow definition", zap.String("name", def.Name), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return &saved, nil
}

func (r *redisWorkflowStorage) Get(name string, version int) (*model.WorkflowDefinition, error) {
	key := r.getNamespaceKey(WORKFLOW_DEF_KEY, name)
	ctx := context.Background()
	defStr, err := r.redisClient.HGet(ctx, key, strconv.Itoa(version)).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "workflow", Key: name}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	def, err := r.encoderDecoder.Decode([]byte(defStr))
	if err != nil {
		return nil, err
	}
	return r.overlayActive(ctx, def)
}

func (r *redisWorkflowStorage) GetLatest(name string) (*model.WorkflowDefinition, error) {
	key := r.getNamespaceKey(WORKFLOW_DEF_KEY, name)
	ctx := context.Background()
	latest, err := r.redisClient.HGet(ctx, key, LATEST_FIELD).Int()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "workflow", Key: name}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return r.Get(name, latest)
}

func (r *redisWorkflowStorage) SetActive(name string, active bool) error {
	ctx := context.Background()
	exists, err := r.redisClient.SIsMember(ctx, r.getNamespaceKey(WORKFLOW_NAMES_KEY), name).Result()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if !exists {
		return persistence.NotFoundError{Kind: "workflow", Key: name}
	}
	err = r.redisClient.HSet(ctx, r.getNamespaceKey(WORKFLOW_ACTIVE_KEY), name, boolToInt(active)).Err()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisWorkflowStorage) ListLatest() ([]*model.WorkflowDefinition, error) {
	ctx := context.Background()
	names, err := r.redisClient.SMembers(ctx, r.getNamespaceKey(WORKFLOW_NAMES_KEY)).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defs := make([]*model.WorkflowDefinition, 0, len(names))
	for _, name := range names {
		def, err := r.GetLatest(name)
		if err != nil {
			if _, ok := err.(persistence.NotFoundError); ok {
				continue
			}
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (r *redisWorkflowStorage) Delete(name string) error {
	ctx := context.Background()
	_, err := r.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		pipe.Del(ctx, r.getNamespaceKey(WORKFLOW_DEF_KEY, name))
		pipe.SRem(ctx, r.getNamespaceKey(WORKFLOW_NAMES_KEY), name)
		pipe.HDel(ctx, r.getNamespaceKey(WORKFLOW_ACTIVE_KEY), name)
		return nil
	})
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisWorkflowStorage) overlayActive(ctx context.Context, def *model.WorkflowDefinition) (*model.WorkflowDefinition, error) {
	activeStr, err := r.redisClient.HGet(ctx, r.getNamespaceKey(WORKFLOW_ACTIVE_KEY), def.Name).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return def, nil
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	def.Active = activeStr == "1"
	return def, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
