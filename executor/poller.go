// Package executor polls the delay queue and feeds due wakeups to the
// enrollment runner.
package executor

import (
	"fmt"
	"sync"
	"time"

	"github.com/praxida/careflow/engine"
	"github.com/praxida/careflow/logger"
	"github.com/praxida/careflow/persistence"
	"github.com/praxida/careflow/util"
	"go.uber.org/zap"
)

// WakeupPoller drains due wakeups, one tick worker per queue partition.
// Pops are destructive, so delivery to the runner happens inline; the
// runner's consumption marker absorbs any redelivery a crash produces.
type WakeupPoller struct {
	delayQueue   persistence.DelayQueue
	runner       *engine.Runner
	batchSize    int
	pollInterval time.Duration
	wg           *sync.WaitGroup
	workers      []*util.TickWorker
}

func NewWakeupPoller(delayQueue persistence.DelayQueue, runner *engine.Runner,
	batchSize int, pollInterval time.Duration, wg *sync.WaitGroup) *WakeupPoller {
	return &WakeupPoller{
		delayQueue:   delayQueue,
		runner:       runner,
		batchSize:    batchSize,
		pollInterval: pollInterval,
		wg:           wg,
	}
}

func (p *WakeupPoller) Start() {
	for partition := 0; partition < p.delayQueue.Partitions(); partition++ {
		part := partition
		worker := util.NewTickWorker(fmt.Sprintf("wakeup-poller-%d", part), p.pollInterval,
			make(chan struct{}), func() { p.drain(part) }, p.wg)
		worker.Start()
		p.workers = append(p.workers, worker)
	}
}

func (p *WakeupPoller) Stop() {
	for _, worker := range p.workers {
		if worker.IsRunning() {
			worker.Stop()
		}
	}
}

func (p *WakeupPoller) drain(partition int) {
	wakeups, err := p.delayQueue.PopDue(partition, p.batchSize)
	if err != nil {
		logger.Error("error popping due wakeups", zap.Int("partition", partition), zap.Error(err))
		return
	}
	for _, wakeup := range wakeups {
		if err := p.runner.HandleWakeup(wakeup); err != nil {
			logger.Error("error handling wakeup", zap.String("wakeupId", wakeup.Id),
				zap.String("workflow", wakeup.WorkflowName), zap.Error(err))
		}
	}
}
