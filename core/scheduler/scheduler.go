package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emirpasic/gods/v2/trees/binaryheap"
	"golang.org/x/sync/semaphore"

	"github.com/opencog-go/atomspace/cogerr"
	"github.com/opencog-go/atomspace/core/graph"
)

// Config holds the scheduler's tunables (spec §4.E, §9 defaults).
type Config struct {
	MaxConcurrentJobs int64
	MaxQueueSize      int
	CycleInterval     time.Duration
	JobTimeout        time.Duration
}

// DefaultConfig returns spec §9's default scheduler tunables.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs: 4,
		MaxQueueSize:      1000,
		CycleInterval:     time.Second,
		JobTimeout:        30 * time.Second,
	}
}

// CycleEvent reports one cycle tick's queue/running snapshot (spec §4.E
// "emit a cycle event with {cycle, queue_size, running_count}").
type CycleEvent struct {
	Cycle        int
	QueueSize    int
	RunningCount int
}

// PluginStats summarizes a plugin's execution history (spec §4.E "update
// plugin statistics").
type PluginStats struct {
	ExecutionCount  int
	AverageDuration time.Duration
	LastError       error
}

type pluginStatsAccum struct {
	count    int
	totalDur time.Duration
	lastErr  error
}

type pluginEntry struct {
	plugin   Plugin
	priority int
	enabled  bool
}

// runningJob tracks one in-flight job's cancellation, and why it was
// cancelled (if it was): "" means it hasn't been cancelled, "timeout" means
// the cycle tick observed it over its deadline, "stop" means Stop() was
// called while it was in flight.
type runningJob struct {
	job    *Job
	cancel context.CancelFunc

	mu     sync.Mutex
	reason string
}

func (r *runningJob) cancelFor(reason string) {
	r.mu.Lock()
	if r.reason == "" {
		r.reason = reason
	}
	r.mu.Unlock()
	r.cancel()
}

func (r *runningJob) cancelReason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

// Scheduler dispatches queued jobs against a shared graph. While running,
// it polls once per CycleInterval: topping up running jobs from the queue
// up to MaxConcurrentJobs, timing out running jobs past their deadline, and
// emitting a cycle event — the non-blocking tick model of spec §4.E, not a
// drain-the-whole-queue-and-block call.
type Scheduler struct {
	mu sync.Mutex

	g       *graph.Graph
	cfg     Config
	plugins map[string]*pluginEntry
	jobs    map[string]*Job
	queue   *binaryheap.Heap[*Job]
	running map[string]*runningJob
	seq     int64
	cycle   int

	sem         *semaphore.Weighted
	pluginStats map[string]*pluginStatsAccum

	events  chan CycleEvent
	ticker  *time.Ticker
	stopCh  chan struct{}
	started bool
	wg      sync.WaitGroup
}

func jobComparator(a, b *Job) int {
	switch {
	case a.Priority > b.Priority:
		return -1
	case a.Priority < b.Priority:
		return 1
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	default:
		return 0
	}
}

// New creates a scheduler over g with the given tunables.
func New(g *graph.Graph, cfg Config) *Scheduler {
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 1
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 1000
	}
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = time.Second
	}
	return &Scheduler{
		g:           g,
		cfg:         cfg,
		plugins:     make(map[string]*pluginEntry),
		jobs:        make(map[string]*Job),
		queue:       binaryheap.NewWith(jobComparator),
		running:     make(map[string]*runningJob),
		sem:         semaphore.NewWeighted(cfg.MaxConcurrentJobs),
		pluginStats: make(map[string]*pluginStatsAccum),
		events:      make(chan CycleEvent, 16),
	}
}

// Events returns the channel cycle events are published to. Sends are
// non-blocking: a tick with no reader waiting drops its event rather than
// stalling dispatch.
func (s *Scheduler) Events() <-chan CycleEvent {
	return s.events
}

// PluginStats returns the named plugin's accumulated execution statistics.
func (s *Scheduler) PluginStats(name string) (PluginStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.pluginStats[name]
	if !ok {
		return PluginStats{}, false
	}
	var avg time.Duration
	if st.count > 0 {
		avg = st.totalDur / time.Duration(st.count)
	}
	return PluginStats{ExecutionCount: st.count, AverageDuration: avg, LastError: st.lastErr}, true
}

func (s *Scheduler) recordPluginStatsLocked(name string, dur time.Duration, err error) {
	st, ok := s.pluginStats[name]
	if !ok {
		st = &pluginStatsAccum{}
		s.pluginStats[name] = st
	}
	st.count++
	st.totalDur += dur
	if err != nil {
		st.lastErr = err
	}
}

// Register adds a plugin to the registry, enabled by default with priority
// 0 (an Enqueue call's own priority always takes precedence over 0).
func (s *Scheduler) Register(p Plugin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plugins[p.Name()] = &pluginEntry{plugin: p, enabled: true}
}

// SetPluginEnabled toggles whether the named plugin accepts new jobs.
// Jobs already queued or running are unaffected.
func (s *Scheduler) SetPluginEnabled(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.plugins[name]; ok {
		e.enabled = enabled
	}
}

// SetPluginPriority sets the named plugin's default priority, used when
// Enqueue is called with priority 0.
func (s *Scheduler) SetPluginPriority(name string, priority int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.plugins[name]; ok {
		e.priority = priority
	}
}

// Enqueue schedules a run of the named plugin with the given priority
// (higher runs first; 0 falls back to the plugin's registered default
// priority), timeout (0 disables it), and retry budget.
func (s *Scheduler) Enqueue(pluginName string, priority int, timeout time.Duration, maxRetries int) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.plugins[pluginName]
	if !ok {
		return nil, cogerr.NotFoundf("scheduler.Enqueue", "unknown plugin %q", pluginName)
	}
	if !entry.enabled {
		return nil, cogerr.Disabledf("scheduler.Enqueue", "plugin %q is disabled", pluginName)
	}
	if s.queue.Size() >= s.cfg.MaxQueueSize {
		return nil, cogerr.QueueFullf("scheduler.Enqueue", "queue at capacity (%d)", s.cfg.MaxQueueSize)
	}
	if priority == 0 {
		priority = entry.priority
	}

	s.seq++
	job := &Job{
		ID:         fmt.Sprintf("job_%d", s.seq),
		Plugin:     pluginName,
		Priority:   priority,
		Timeout:    timeout,
		MaxRetries: maxRetries,
		State:      Queued,
		seq:        s.seq,
		createdAt:  time.Now(),
	}
	s.jobs[job.ID] = job
	s.queue.Push(job)
	return job, nil
}

// Job returns the job with the given id, if known.
func (s *Scheduler) Job(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return j, ok
}

// QueueLen reports how many jobs are waiting to be dispatched.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Size()
}

// RunningLen reports how many jobs are currently running.
func (s *Scheduler) RunningLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// Start begins the cycle timer: every CycleInterval, Tick runs once in the
// background until the context is cancelled or Stop is called. Safe to call
// more than once; later calls are no-ops while already started.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.ticker = time.NewTicker(s.cfg.CycleInterval)
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.stopCh:
			return
		case <-s.ticker.C:
			s.Tick(ctx)
		}
	}
}

// Stop halts dispatch and cancels all running jobs — they transition to
// Cancelled. Idempotent and safe to call before Start (spec §4.E).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.started {
		s.started = false
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	}
	running := make([]*runningJob, 0, len(s.running))
	for _, rj := range s.running {
		running = append(running, rj)
	}
	s.mu.Unlock()

	for _, rj := range running {
		rj.cancelFor("stop")
	}
}

// Tick runs one non-blocking cycle iteration: it tops up running jobs from
// the queue up to MaxConcurrentJobs, fails any running job past its
// deadline, and emits a cycle event. It returns immediately; plugins run in
// their own goroutines (spec §4.E "Cycle behaviour").
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	s.cycle++
	cycle := s.cycle

	for int64(len(s.running)) < s.cfg.MaxConcurrentJobs {
		job, ok := s.queue.Pop()
		if !ok {
			break
		}
		if !s.sem.TryAcquire(1) {
			s.queue.Push(job)
			break
		}
		s.startJobLocked(ctx, job)
	}

	now := time.Now()
	for _, rj := range s.running {
		job := rj.job
		if job.Timeout > 0 && now.Sub(job.StartedAt) > job.Timeout {
			rj.cancelFor("timeout")
		}
	}

	queueSize := s.queue.Size()
	runningCount := len(s.running)
	s.mu.Unlock()

	select {
	case s.events <- CycleEvent{Cycle: cycle, QueueSize: queueSize, RunningCount: runningCount}:
	default:
	}
}

// startJobLocked must be called with s.mu held; it marks job running and
// spawns its plugin body in its own goroutine.
func (s *Scheduler) startJobLocked(parent context.Context, job *Job) {
	entry, ok := s.plugins[job.Plugin]
	if !ok {
		s.sem.Release(1)
		job.State = Failed
		job.Err = cogerr.NotFoundf("scheduler.Tick", "unknown plugin %q", job.Plugin)
		return
	}

	job.State = Running
	job.StartedAt = time.Now()
	jobCtx, cancel := context.WithCancel(parent)
	rj := &runningJob{job: job, cancel: cancel}
	s.running[job.ID] = rj

	go func() {
		defer s.sem.Release(1)
		start := time.Now()
		result, err := entry.plugin.Run(jobCtx, s.g)
		cancel()
		s.finishRunning(rj, result, err, time.Since(start))
	}()
}

// finishRunning records a finished attempt's plugin stats and resolves the
// job's next state: cancelled (if Stop() cancelled it), timed out (if the
// tick cancelled it for running past its deadline), retried (if it failed
// with retry budget left), failed, or completed.
func (s *Scheduler) finishRunning(rj *runningJob, result interface{}, err error, dur time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := rj.job
	delete(s.running, job.ID)
	s.recordPluginStatsLocked(job.Plugin, dur, err)

	switch rj.cancelReason() {
	case "stop":
		job.State = Cancelled
		job.Err = context.Canceled
		return
	case "timeout":
		job.State = TimedOut
		job.Err = cogerr.Timeoutf("scheduler.Tick", "job %s exceeded its %s timeout", job.ID, job.Timeout)
		return
	}

	if err != nil {
		if job.Attempts < job.MaxRetries {
			job.Attempts++
			job.State = Queued
			s.queue.Push(job)
			return
		}
		job.State = Failed
		job.Err = err
		return
	}

	job.State = Completed
	job.Result = result
	job.Err = nil
}
