// Package engine owns the watch store, the per-watch schedulers and the
// poll pipeline: probe, classify, notify, persist.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"github.com/NordCoder/Watchtower/internal/obs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultProbeTimeout  = 10 * time.Second
	defaultFlushInterval = 5 * time.Minute
	defaultMinInterval   = time.Minute
	defaultMaxInterval   = 60 * time.Minute
)

type Options struct {
	Log      *zap.Logger
	Snapshot watch.SnapshotStore
	Notifier watch.Notifier
	Probers  map[watch.Kind]watch.Prober

	ProbeTimeout  time.Duration
	FlushInterval time.Duration
	MinInterval   time.Duration
	MaxInterval   time.Duration
}

// Engine is the single owner of the watch set. Callers only ever see copies
// of records; probers and notifiers never touch the store directly.
type Engine struct {
	log      *zap.Logger
	snap     watch.SnapshotStore
	notifier watch.Notifier
	probers  map[watch.Kind]watch.Prober

	probeTimeout  time.Duration
	flushInterval time.Duration
	minInterval   time.Duration
	maxInterval   time.Duration

	// saveMu serializes snapshot writes so a stale snapshot can never
	// overwrite a newer one; the store snapshot is taken under mu while
	// saveMu is held.
	saveMu sync.Mutex

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	watches map[string]*watch.Watch
	order   []string
	runners map[string]*runner
	seq     uint64
	dirty   bool

	wg sync.WaitGroup
}

type runner struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = zap.L()
	}
	e := &Engine{
		log:           log.With(zap.String("component", "engine")),
		snap:          opts.Snapshot,
		notifier:      opts.Notifier,
		probers:       opts.Probers,
		probeTimeout:  opts.ProbeTimeout,
		flushInterval: opts.FlushInterval,
		minInterval:   opts.MinInterval,
		maxInterval:   opts.MaxInterval,
		watches:       make(map[string]*watch.Watch),
		runners:       make(map[string]*runner),
		seq:           1,
	}
	if e.probeTimeout <= 0 {
		e.probeTimeout = defaultProbeTimeout
	}
	if e.flushInterval <= 0 {
		e.flushInterval = defaultFlushInterval
	}
	if e.minInterval <= 0 {
		e.minInterval = defaultMinInterval
	}
	if e.maxInterval <= 0 {
		e.maxInterval = defaultMaxInterval
	}
	return e
}

// Start restores the persisted watch set, arms a scheduler for every record
// and begins the periodic snapshot flush. A missing snapshot starts empty;
// an undecodable one fails Start with watch.ErrCorruptSnapshot.
func (e *Engine) Start(ctx context.Context) error {
	var restored []watch.Watch
	if e.snap != nil {
		recs, err := e.snap.Load(ctx)
		if err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		restored = recs
	}

	e.mu.Lock()
	if e.ctx != nil {
		e.mu.Unlock()
		return errors.New("engine already started")
	}
	e.ctx, e.cancel = context.WithCancel(ctx)

	for _, rec := range restored {
		if _, ok := e.watches[rec.ID]; ok {
			continue
		}
		r := rec
		if r.Seq >= e.seq {
			e.seq = r.Seq + 1
		}
		e.watches[r.ID] = &r
		e.order = append(e.order, r.ID)
	}
	for _, id := range e.order {
		e.armLocked(e.watches[id])
	}
	n := len(e.watches)
	mWatches.Set(float64(n))
	e.mu.Unlock()

	e.wg.Add(1)
	go e.flushLoop()

	e.log.Info("engine started", zap.Int("watches", n))
	return nil
}

// Stop disarms every scheduler, waits for the loops to exit and flushes a
// final snapshot.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	runners := make([]*runner, 0, len(e.runners))
	for id, r := range e.runners {
		runners = append(runners, r)
		delete(e.runners, id)
	}
	e.mu.Unlock()

	for _, r := range runners {
		<-r.done
	}
	e.wg.Wait()

	e.persist(context.Background(), "shutdown")
	e.log.Info("engine stopped")
}

// Add registers a watch (insert-or-replace on id), persists the snapshot
// and arms its scheduler, which fires the first poll immediately. The
// returned copy carries the derived id and the clamped interval.
func (e *Engine) Add(ctx context.Context, w watch.Watch) (watch.Watch, error) {
	prober, ok := e.probers[w.Kind]
	if !ok || prober == nil {
		return watch.Watch{}, fmt.Errorf("%w: %q", watch.ErrUnknownKind, w.Kind)
	}
	if w.ResourceKey == "" {
		return watch.Watch{}, fmt.Errorf("%w: empty resource key", watch.ErrInvalidWatch)
	}
	if w.SinkChannel == "" {
		return watch.Watch{}, fmt.Errorf("%w: empty sink channel", watch.ErrInvalidWatch)
	}
	if w.Interval < e.minInterval {
		w.Interval = e.minInterval
	}
	if w.Interval > e.maxInterval {
		w.Interval = e.maxInterval
	}
	if w.ID == "" {
		w.ID = watch.DeriveID(w.Kind, w.ResourceKey, w.SinkChannel)
	}

	e.mu.Lock()
	w.Seq = e.seq
	e.seq++
	if old, ok := e.watches[w.ID]; ok {
		// Replace keeps the original insertion position and creation time.
		w.CreatedAt = old.CreatedAt
	} else {
		w.CreatedAt = time.Now().UTC()
		e.order = append(e.order, w.ID)
	}
	rec := w
	e.watches[w.ID] = &rec
	e.armLocked(&rec)
	mWatches.Set(float64(len(e.watches)))
	e.mu.Unlock()

	e.persist(ctx, "add")

	e.log.Info("watch added",
		zap.String("watch_id", w.ID),
		zap.String("kind", string(w.Kind)),
		zap.String("resource", w.ResourceKey),
		zap.Duration("interval", w.Interval),
	)
	return w, nil
}

// Remove deletes a watch and cancels its scheduler. Once Remove returns no
// further poll for the id starts; a poll already in flight finishes but its
// result is discarded.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	if _, ok := e.watches[id]; !ok {
		e.mu.Unlock()
		return watch.ErrNotFound
	}
	delete(e.watches, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	r := e.runners[id]
	delete(e.runners, id)
	mWatches.Set(float64(len(e.watches)))
	e.mu.Unlock()

	if r != nil {
		r.cancel()
	}

	e.persist(ctx, "remove")

	e.log.Info("watch removed", zap.String("watch_id", id))
	return nil
}

// Get returns a copy of one record.
func (e *Engine) Get(id string) (watch.Watch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.watches[id]
	if !ok {
		return watch.Watch{}, watch.ErrNotFound
	}
	return *w, nil
}

// List returns copies of all records in insertion order.
func (e *Engine) List() []watch.Watch {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]watch.Watch, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.watches[id])
	}
	return out
}

// armLocked installs the single scheduler for a record, replacing any
// previous one. Callers hold e.mu. Before Start the record stays unarmed;
// Start arms everything present. A restored record whose kind has no
// registered prober stays in the store unarmed instead of crashing its
// first poll.
func (e *Engine) armLocked(w *watch.Watch) {
	var prev chan struct{}
	if old, ok := e.runners[w.ID]; ok {
		old.cancel()
		delete(e.runners, w.ID)
		prev = old.done
	}
	if e.ctx == nil {
		return
	}
	if e.probers[w.Kind] == nil {
		e.log.Warn("no prober registered for kind, watch left unarmed",
			zap.String("watch_id", w.ID), zap.String("kind", string(w.Kind)))
		return
	}
	rctx, cancel := context.WithCancel(e.ctx)
	r := &runner{cancel: cancel, done: make(chan struct{})}
	e.runners[w.ID] = r
	go e.runLoop(rctx, r, w.ID, w.Interval, w.Seq, prev)
}

// runLoop is the one goroutine behind a watch: an immediate first poll,
// then one poll per tick. A slow poll delays the next one instead of
// overlapping it, and on replace the new loop waits for its predecessor
// to finish so two polls for the same id never run at once.
func (e *Engine) runLoop(ctx context.Context, r *runner, id string, interval time.Duration, seq uint64, prev chan struct{}) {
	defer close(r.done)

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return
		}
	}

	e.poll(ctx, id, seq)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.poll(ctx, id, seq)
		}
	}
}

func (e *Engine) poll(ctx context.Context, id string, seq uint64) {
	start := time.Now()

	e.mu.Lock()
	cur, ok := e.watches[id]
	if !ok || cur.Seq != seq {
		e.mu.Unlock()
		return
	}
	w := *cur
	e.mu.Unlock()

	tr := otel.Tracer("engine")
	ctx, span := tr.Start(ctx, "watch.poll",
		trace.WithAttributes(
			attribute.String("watch.id", id),
			attribute.String("watch.kind", string(w.Kind)),
		),
	)
	defer span.End()

	mPolls.WithLabelValues(string(w.Kind)).Inc()

	pctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	observed, extra, err := e.probers[w.Kind].Probe(pctx, w.ResourceKey, w.Extra)
	cancel()
	now := time.Now().UTC()
	mPollDur.Observe(time.Since(start).Seconds())

	if err != nil {
		mProbeErrors.WithLabelValues(string(w.Kind)).Inc()
		span.RecordError(err)
		log := obs.WithTrace(ctx, e.log)
		if errors.Is(err, watch.ErrUnresolved) {
			log.Warn("resource unresolved, will retry next poll",
				zap.String("watch_id", id), zap.String("resource", w.ResourceKey), zap.Error(err))
		} else {
			log.Warn("probe failed",
				zap.String("watch_id", id), zap.String("resource", w.ResourceKey), zap.Error(err))
		}
		// Failed polls advance the checked timestamp only; the observed
		// state and any pending transition wait for the next cycle.
		e.mu.Lock()
		if cur, ok := e.watches[id]; ok && cur.Seq == seq {
			if now.After(cur.LastCheckedAt) {
				cur.LastCheckedAt = now
			}
			e.dirty = true
		}
		e.mu.Unlock()
		return
	}

	e.mu.Lock()
	cur, ok = e.watches[id]
	if !ok || cur.Seq != seq {
		// Removed or replaced while the probe was in flight; discard.
		e.mu.Unlock()
		return
	}
	transition := classify(cur, observed)
	apply(cur, observed, extra, now)
	var ev watch.Event
	if transition != watch.TransitionNone {
		ev = watch.Event{Watch: *cur, Transition: transition, Observation: observed, At: now}
	}
	e.dirty = true
	e.mu.Unlock()

	span.SetAttributes(attribute.String("watch.transition", string(transition)))

	if transition == watch.TransitionNone {
		return
	}

	mTransitions.WithLabelValues(string(w.Kind), string(transition)).Inc()
	e.persist(ctx, "transition")
	e.dispatch(ctx, ev)
}

// dispatch invokes the notifier exactly once per transition. The state
// change is already committed; delivery failure is logged, never retried.
func (e *Engine) dispatch(ctx context.Context, ev watch.Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, ev); err != nil {
		mNotifyErrors.Inc()
		obs.WithTrace(ctx, e.log).Warn("notify failed",
			zap.String("watch_id", ev.Watch.ID),
			zap.String("sink", ev.Watch.SinkChannel),
			zap.String("transition", string(ev.Transition)),
			zap.Error(err),
		)
	}
}

// persist writes the current snapshot through to the store. Failures are
// logged and counted; the in-memory set stays authoritative.
func (e *Engine) persist(ctx context.Context, reason string) {
	if e.snap == nil {
		return
	}
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	e.mu.Lock()
	snap := make([]watch.Watch, 0, len(e.order))
	for _, id := range e.order {
		snap = append(snap, *e.watches[id])
	}
	e.dirty = false
	e.mu.Unlock()

	mSnapshotWrites.Inc()
	if err := e.snap.Save(ctx, snap); err != nil {
		mSnapshotErrors.Inc()
		e.log.Error("snapshot write failed",
			zap.String("reason", reason), zap.Int("watches", len(snap)), zap.Error(err))
	}
}

// flushLoop is the safety net behind the write-through paths: plain
// no-change polls only mark the set dirty, and this loop picks them up.
func (e *Engine) flushLoop() {
	defer e.wg.Done()

	t := time.NewTicker(e.flushInterval)
	defer t.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-t.C:
			e.mu.Lock()
			dirty := e.dirty
			e.mu.Unlock()
			if dirty {
				e.persist(context.Background(), "flush")
			}
		}
	}
}
