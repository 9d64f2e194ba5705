package retention_test

import (
	"context"
	"sync"

	"github.com/okian/epochboard/internal/adapters/repository"
	"github.com/okian/epochboard/internal/domain/epoch"
	"github.com/okian/epochboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func versionsOf(s *repository.MemoryStore, id string) []int64 {
	v, err := s.Versions(context.Background(), id)
	So(err, ShouldBeNil)
	return v
}

func retentionJob(id string, newVersion, cutoff int64) model.ReapJob {
	return model.ReapJob{LeaderboardID: id, Cadence: epoch.Daily, NewVersion: newVersion, Cutoff: cutoff}
}

// boundedQueue is a synchronous stand-in for the reap queue.
type boundedQueue struct {
	mu       sync.Mutex
	jobs     []model.ReapJob
	capacity int
}

func newBoundedQueue(capacity int) *boundedQueue {
	return &boundedQueue{capacity: capacity}
}

func (q *boundedQueue) Enqueue(_ context.Context, j model.ReapJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) >= q.capacity {
		return false
	}
	q.jobs = append(q.jobs, j)
	return true
}

func (q *boundedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *boundedQueue) pop() model.ReapJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j
}
