package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/util"
	"github.com/stretchr/testify/require"
)

func TestDelayQueue(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, queue *redisDelayQueue,
	){
		"pop returns only due wakeups":           testPopDueRespectsSchedule,
		"batch overflow stays queued":            testPopDueBatchOverflowStaysQueued,
		"workflow names survive the round trip":  testPushPopRoundTrip,
		"pop on empty partition returns nothing": testPopEmpty,
	} {
		t.Run(scenario, func(t *testing.T) {
			mr := miniredis.RunT(t)
			dao := newBaseDao(Config{
				Addrs:      []string{mr.Addr()},
				Namespace:  "test",
				Partitions: 1,
			})
			queue := NewRedisDelayQueue(dao, util.NewJsonEncoderDecoder[model.Wakeup]())
			fn(t, queue)
		})
	}
}

func wakeupWithId(id string) *model.Wakeup {
	return &model.Wakeup{
		Id:           id,
		Kind:         model.WAKEUP_DELAY,
		WorkflowName: "welcome-sequence",
		EnrollmentId: "enr-1",
		NodeId:       "n1",
	}
}

func testPopDueRespectsSchedule(t *testing.T, queue *redisDelayQueue) {
	now := time.Now()
	require.NoError(t, queue.Push(wakeupWithId("due"), now.Add(-time.Second)))
	require.NoError(t, queue.Push(wakeupWithId("future"), now.Add(time.Hour)))

	due, err := queue.PopDue(0, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "due", due[0].Id)

	// the future wakeup stays scheduled
	due, err = queue.PopDue(0, 10)
	require.NoError(t, err)
	require.Empty(t, due)
}

// A partition with more due wakeups than one batch must deliver the excess
// on the next pop instead of dropping it with the removed batch.
func testPopDueBatchOverflowStaysQueued(t *testing.T, queue *redisDelayQueue) {
	fireAt := time.Now().Add(-time.Second)
	for _, id := range []string{"w1", "w2", "w3"} {
		require.NoError(t, queue.Push(wakeupWithId(id), fireAt))
	}

	first, err := queue.PopDue(0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := queue.PopDue(0, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)

	seen := map[string]bool{}
	for _, wakeup := range append(first, second...) {
		seen[wakeup.Id] = true
	}
	require.Len(t, seen, 3)
}

func testPushPopRoundTrip(t *testing.T, queue *redisDelayQueue) {
	pushed := &model.Wakeup{
		Id:           "wid-1",
		Kind:         model.WAKEUP_RETRY,
		WorkflowName: "intake:v2",
		EnrollmentId: "enr-1",
		NodeId:       "n1",
	}
	require.NoError(t, queue.Push(pushed, time.Now().Add(-time.Second)))

	due, err := queue.PopDue(0, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, pushed, due[0])
}

func testPopEmpty(t *testing.T, queue *redisDelayQueue) {
	due, err := queue.PopDue(0, 10)
	require.NoError(t, err)
	require.Empty(t, due)
}
