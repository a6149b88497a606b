package redis

import (
	"context"
	"errors"

	rd "github.com/go-redis/redis/v9"
	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence"
	"github.com/praxida/careflow/util"
	"go.uber.org/zap"
)

const ENROLLMENT_KEY string = "ENR"

var _ persistence.EnrollmentStorage = new(redisEnrollmentStorage)

type redisEnrollmentStorage struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Enrollment]
}

func NewRedisEnrollmentStorage(baseDao *baseDao, encoderDecoder util.EncoderDecoder[model.Enrollment]) *redisEnrollmentStorage {
	return &redisEnrollmentStorage{
		baseDao:        baseDao,
		encoderDecoder: encoderDecoder,
	}
}

func (r *redisEnrollmentStorage) Save(enrollment *model.Enrollment) error {
	key := r.getNamespaceKey(ENROLLMENT_KEY, enrollment.WorkflowName)
	ctx := context.Background()
	data, err := r.encoderDecoder.Encode(*enrollment)
	if err != nil {
		return err
	}
	if err := r.redisClient.HSet(ctx, key, enrollment.Id, string(data)).Err(); err != nil {
		logger.Error("error saving enrollment", zap.String("workflow", enrollment.WorkflowName), zap.String("id", enrollment.Id), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisEnrollmentStorage) Get(workflowName string, id string) (*model.Enrollment, error) {
	key := r.getNamespaceKey(ENROLLMENT_KEY, workflowName)
	ctx := context.Background()
	enrollmentStr, err := r.redisClient.HGet(ctx, key, id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.NotFoundError{Kind: "enrollment", Key: id}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return r.encoderDecoder.Decode([]byte(enrollmentStr))
}

func (r *redisEnrollmentStorage) Delete(workflowName string, id string) error {
	key := r.getNamespaceKey(ENROLLMENT_KEY, workflowName)
	ctx := context.Background()
	if err := r.redisClient.HDel(ctx, key, id).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}
