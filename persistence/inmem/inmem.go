// Package inmem backs the storage interfaces with process-local maps. It is
// selected with storage-impl=memory and is the substrate for the test suite.
package inmem

import (
	"sort"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/praxida/careflow/model"
	"github.com/praxida/careflow/persistence"
)

type WorkflowStorage struct {
	mu       sync.Mutex
	versions map[string][]*model.WorkflowDefinition
	active   map[string]bool
}

var _ persistence.WorkflowStorage = new(WorkflowStorage)

func NewWorkflowStorage() *WorkflowStorage {
	return &WorkflowStorage{
		versions: make(map[string][]*model.WorkflowDefinition),
		active:   make(map[string]bool),
	}
}

func (s *WorkflowStorage) Save(def *model.WorkflowDefinition) (*model.WorkflowDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := *def
	saved.Version = len(s.versions[def.Name]) + 1
	s.versions[def.Name] = append(s.versions[def.Name], &saved)
	s.active[def.Name] = def.Active
	out := saved
	return &out, nil
}

func (s *WorkflowStorage) Get(name string, version int) (*model.WorkflowDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.versions[name]
	if version < 1 || version > len(versions) {
		return nil, persistence.NotFoundError{Kind: "workflow", Key: name}
	}
	out := *versions[version-1]
	out.Active = s.active[name]
	return &out, nil
}

func (s *WorkflowStorage) GetLatest(name string) (*model.WorkflowDefinition, error) {
	s.mu.Lock()
	count := len(s.versions[name])
	s.mu.Unlock()
	if count == 0 {
		return nil, persistence.NotFoundError{Kind: "workflow", Key: name}
	}
	return s.Get(name, count)
}

func (s *WorkflowStorage) SetActive(name string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.versions[name]) == 0 {
		return persistence.NotFoundError{Kind: "workflow", Key: name}
	}
	s.active[name] = active
	return nil
}

func (s *WorkflowStorage) ListLatest() ([]*model.WorkflowDefinition, error) {
	s.mu.Lock()
	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)
	defs := make([]*model.WorkflowDefinition, 0, len(names))
	for _, name := range names {
		def, err := s.GetLatest(name)
		if err != nil {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (s *WorkflowStorage) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.versions, name)
	delete(s.active, name)
	return nil
}

type EnrollmentStorage struct {
	mu          sync.Mutex
	enrollments map[string]*model.Enrollment
}

var _ persistence.EnrollmentStorage = new(EnrollmentStorage)

func NewEnrollmentStorage() *EnrollmentStorage {
	return &EnrollmentStorage{enrollments: make(map[string]*model.Enrollment)}
}

func (s *EnrollmentStorage) Save(enrollment *model.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *enrollment
	s.enrollments[enrollment.WorkflowName+":"+enrollment.Id] = &clone
	return nil
}

func (s *EnrollmentStorage) Get(workflowName string, id string) (*model.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.enrollments[workflowName+":"+id]
	if !ok {
		return nil, persistence.NotFoundError{Kind: "enrollment", Key: id}
	}
	clone := *enrollment
	return &clone, nil
}

func (s *EnrollmentStorage) Delete(workflowName string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.enrollments, workflowName+":"+id)
	return nil
}

type scheduledWakeup struct {
	wakeup *model.Wakeup
	fireAt time.Time
}

type DelayQueue struct {
	mu         sync.Mutex
	partitions int
	queues     map[int][]scheduledWakeup
}

var _ persistence.DelayQueue = new(DelayQueue)

func NewDelayQueue(partitions int) *DelayQueue {
	if partitions <= 0 {
		partitions = 1
	}
	return &DelayQueue{
		partitions: partitions,
		queues:     make(map[int][]scheduledWakeup),
	}
}

func (q *DelayQueue) Push(wakeup *model.Wakeup, fireAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	partition := int(murmur3.Sum64([]byte(wakeup.EnrollmentId)) % uint64(q.partitions))
	q.queues[partition] = append(q.queues[partition], scheduledWakeup{wakeup: wakeup, fireAt: fireAt})
	sort.SliceStable(q.queues[partition], func(i, j int) bool {
		return q.queues[partition][i].fireAt.Before(q.queues[partition][j].fireAt)
	})
	return nil
}

func (q *DelayQueue) PopDue(partition int, batchSize int) ([]*model.Wakeup, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()
	var due []*model.Wakeup
	remaining := q.queues[partition][:0]
	for _, entry := range q.queues[partition] {
		if len(due) < batchSize && !entry.fireAt.After(now) {
			due = append(due, entry.wakeup)
		} else {
			remaining = append(remaining, entry)
		}
	}
	q.queues[partition] = remaining
	return due, nil
}

func (q *DelayQueue) Partitions() int {
	return q.partitions
}

// PopAt drains wakeups due at the given instant regardless of wall clock.
// Test helper for delay and recurrence semantics.
func (q *DelayQueue) PopAt(at time.Time) []*model.Wakeup {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []*model.Wakeup
	for partition, entries := range q.queues {
		remaining := entries[:0]
		for _, entry := range entries {
			if !entry.fireAt.After(at) {
				due = append(due, entry.wakeup)
			} else {
				remaining = append(remaining, entry)
			}
		}
		q.queues[partition] = remaining
	}
	return due
}

// NextFireAt reports the earliest scheduled wakeup time, if any.
func (q *DelayQueue) NextFireAt() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var earliest time.Time
	found := false
	for _, entries := range q.queues {
		for _, entry := range entries {
			if !found || entry.fireAt.Before(earliest) {
				earliest = entry.fireAt
				found = true
			}
		}
	}
	return earliest, found
}

type MarkerStore struct {
	mu      sync.Mutex
	markers map[string]bool
}

var _ persistence.MarkerStore = new(MarkerStore)

func NewMarkerStore() *MarkerStore {
	return &MarkerStore{markers: make(map[string]bool)}
}

func (s *MarkerStore) MarkOnce(kind string, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	full := kind + ":" + key
	if s.markers[full] {
		return false, nil
	}
	s.markers[full] = true
	return true, nil
}
