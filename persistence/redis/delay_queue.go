package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	rd "github.com/go-redis/redis/v9"
	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence"
	"github.com/praxida/careflow/util"
	"go.uber.org/zap"
)

const DELAY_QUEUE_KEY string = "WAKEUP"

var _ persistence.DelayQueue = new(redisDelayQueue)

// redisDelayQueue keeps wakeups in one sorted set per partition, scored by
// due time in unix milliseconds. Partition assignment hashes the enrollment
// id so all wakeups of one enrollment drain through the same poller.
type redisDelayQueue struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Wakeup]
}

func NewRedisDelayQueue(baseDao *baseDao, encoderDecoder util.EncoderDecoder[model.Wakeup]) *redisDelayQueue {
	return &redisDelayQueue{
		baseDao:        baseDao,
		encoderDecoder: encoderDecoder,
	}
}

func (rq *redisDelayQueue) Push(wakeup *model.Wakeup, fireAt time.Time) error {
	partition := rq.getPartition(wakeup.EnrollmentId)
	queueName := rq.getNamespaceKey(DELAY_QUEUE_KEY, strconv.Itoa(partition))
	ctx := context.Background()
	data, err := rq.encoderDecoder.Encode(*wakeup)
	if err != nil {
		return err
	}
	member := rd.Z{
		Score:  float64(fireAt.UnixMilli()),
		Member: string(data),
	}
	err = rq.redisClient.ZAdd(ctx, queueName, member).Err()
	if err != nil {
		logger.Error("error pushing wakeup", zap.String("queue", queueName), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

// PopDue reads up to batchSize due members and removes exactly those, so a
// partition holding more due wakeups than one batch keeps the excess queued
// for the next tick. A crash between read and remove redelivers the batch;
// the runner's consumption marker absorbs that.
func (rq *redisDelayQueue) PopDue(partition int, batchSize int) ([]*model.Wakeup, error) {
	queueName := rq.getNamespaceKey(DELAY_QUEUE_KEY, strconv.Itoa(partition))
	ctx := context.Background()
	currentTime := time.Now().UnixMilli()
	opt := &rd.ZRangeBy{
		Min:   strconv.Itoa(0),
		Max:   strconv.FormatInt(currentTime, 10),
		Count: int64(batchSize),
	}
	messages, err := rq.redisClient.ZRangeByScore(ctx, queueName, opt).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		logger.Error("error popping wakeups", zap.String("queue", queueName), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	if len(messages) == 0 {
		return nil, nil
	}
	members := make([]interface{}, len(messages))
	for i, message := range messages {
		members[i] = message
	}
	if err := rq.redisClient.ZRem(ctx, queueName, members...).Err(); err != nil {
		logger.Error("error removing popped wakeups", zap.String("queue", queueName), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	wakeups := make([]*model.Wakeup, 0, len(messages))
	for _, message := range messages {
		wakeup, err := rq.encoderDecoder.Decode([]byte(message))
		if err != nil {
			logger.Error("dropping malformed wakeup", zap.String("message", message), zap.Error(err))
			continue
		}
		wakeups = append(wakeups, wakeup)
	}
	return wakeups, nil
}

func (rq *redisDelayQueue) Partitions() int {
	return rq.partitions
}
