package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/tochemey/goakt/v2/actors"
	"github.com/tochemey/goakt/v2/goakt"
	"github.com/tochemey/goakt/v2/log"
)

// CycleMsg requests one manual Tick over the scheduler's queue.
type CycleMsg struct{}

// EnqueueMsg requests a new job be enqueued.
type EnqueueMsg struct {
	Plugin     string
	Priority   int
	Timeout    time.Duration
	MaxRetries int
}

// cogServerActor is the goakt actor front-end for a Scheduler, mirroring
// the teacher's OrchestratorActor message-loop shape
// (core/echobeats/orchestrator_actor.go): a switch over ctx.Message()
// dispatching to private handlers, ctx.Unhandled() on the default case.
type cogServerActor struct {
	scheduler *Scheduler
}

func newCogServerActor(s *Scheduler) *cogServerActor {
	return &cogServerActor{scheduler: s}
}

func (a *cogServerActor) PreStart(ctx context.Context) error { return nil }

func (a *cogServerActor) Receive(ctx actors.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *EnqueueMsg:
		job, err := a.scheduler.Enqueue(msg.Plugin, msg.Priority, msg.Timeout, msg.MaxRetries)
		if err != nil {
			ctx.Response(&EnqueueErrorMsg{Err: err})
			return
		}
		ctx.Response(&EnqueuedMsg{JobID: job.ID})
	case *CycleMsg:
		a.scheduler.Tick(ctx.Context())
		ctx.Response(&CycleCompleteMsg{RunningCount: a.scheduler.RunningLen()})
	default:
		ctx.Unhandled()
	}
}

func (a *cogServerActor) PostStop(ctx context.Context) error { return nil }

// EnqueuedMsg acknowledges a successful EnqueueMsg.
type EnqueuedMsg struct{ JobID string }

// EnqueueErrorMsg reports a failed EnqueueMsg.
type EnqueueErrorMsg struct{ Err error }

// CycleCompleteMsg reports the scheduler's running-job count after a
// CycleMsg's tick.
type CycleCompleteMsg struct{ RunningCount int }

// ActorSystem wraps a Scheduler behind a goakt actor system, so the
// scheduler can be driven by message passing the way the teacher's
// cognitive system drives its engines (spec §4.E "CogServer" framing: the
// scheduler is itself a long-running server, not just a library call).
type ActorSystem struct {
	scheduler *Scheduler
	system    goakt.ActorSystem
	pid       actors.PID
}

// NewActorSystem wraps a Scheduler for use behind a goakt actor system. The
// name argument is not used; the actor system's name is the one passed to
// Start.
func NewActorSystem(name string, s *Scheduler) *ActorSystem {
	return &ActorSystem{scheduler: s}
}

// Start creates and starts the underlying actor system and spawns the
// scheduler's front-end actor.
func (a *ActorSystem) Start(ctx context.Context, name string) error {
	system, err := goakt.NewActorSystem(
		name,
		goakt.WithLogger(log.DefaultLogger),
		goakt.WithActorInitMaxRetries(3),
	)
	if err != nil {
		return fmt.Errorf("cogserver: create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("cogserver: start actor system: %w", err)
	}

	pid, err := system.Spawn(ctx, "cogserver", newCogServerActor(a.scheduler))
	if err != nil {
		system.Stop(ctx)
		return fmt.Errorf("cogserver: spawn scheduler actor: %w", err)
	}

	a.system = system
	a.pid = pid
	return nil
}

// Stop shuts down the actor system.
func (a *ActorSystem) Stop(ctx context.Context) error {
	if a.system == nil {
		return nil
	}
	return a.system.Stop(ctx)
}

// Enqueue asks the scheduler actor to enqueue a job.
func (a *ActorSystem) Enqueue(ctx context.Context, msg *EnqueueMsg) error {
	return a.system.Tell(ctx, a.pid, msg)
}

// Cycle asks the scheduler actor to run one dispatch pass.
func (a *ActorSystem) Cycle(ctx context.Context) error {
	return a.system.Tell(ctx, a.pid, &CycleMsg{})
}
