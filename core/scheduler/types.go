// Package scheduler implements the CogServer plugin scheduler (spec §4.E):
// a priority job queue dispatched with bounded concurrency, timeouts, and
// retries, over a small registry of built-in cognitive plugins. It is
// grounded on the teacher's WorkerPool/InferenceTask in
// core/_opencog.disabled/hypercyclic_reactor.go for the queue/timeout/retry
// shape, and on core/echobeats's goakt-actor wiring
// (goakt_cognitive_system.go, orchestrator_actor.go) for the actor entry
// point in actor.go.
package scheduler

import (
	"context"
	"time"

	"github.com/opencog-go/atomspace/core/graph"
)

// JobState is a job's position in its lifecycle: queued -> running ->
// (completed | failed | timed-out | cancelled), with running -> queued on
// retry (spec §4.E).
type JobState int

const (
	Queued JobState = iota
	Running
	Completed
	Failed
	TimedOut
	Cancelled
)

func (s JobState) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed-out"
	case Cancelled:
		return "cancelled"
	default:
		return "queued"
	}
}

// Plugin is a unit of scheduled work over the shared graph.
type Plugin interface {
	Name() string
	Run(ctx context.Context, g *graph.Graph) (interface{}, error)
}

// Job tracks one scheduled plugin invocation.
type Job struct {
	ID         string
	Plugin     string
	Priority   int
	Timeout    time.Duration
	MaxRetries int
	Attempts   int

	State     JobState
	Result    interface{}
	Err       error
	StartedAt time.Time

	createdAt time.Time
	seq       int64
}

// CreatedAt returns when the job was enqueued.
func (j *Job) CreatedAt() time.Time { return j.createdAt }
