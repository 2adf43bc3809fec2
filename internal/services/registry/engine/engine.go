package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	apperrors "github.com/louisbranch/gns/internal/platform/errors"
	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/louisbranch/gns/internal/services/registry/journal"
	"github.com/louisbranch/gns/internal/services/registry/observability"
	"github.com/louisbranch/gns/internal/services/registry/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/gns/internal/services/registry/engine"

const (
	defaultQueueSize   = 64
	defaultWatchBuffer = 256
	watchBacklogPage   = 200
)

var (
	// ErrClosed is returned for requests made after Close.
	ErrClosed = errors.New("registry engine is closed")
	// ErrNotStarted is returned for requests made before Start.
	ErrNotStarted = errors.New("registry engine is not started")
	// ErrWatcherLagged ends a watch whose consumer fell behind the journal.
	ErrWatcherLagged = errors.New("event watcher fell behind")
)

// Options tune an Engine. Zero values select defaults.
type Options struct {
	Metrics     *observability.Metrics
	Clock       func() time.Time
	QueueSize   int
	WatchBuffer int
}

// Engine serializes registry commands through one actor goroutine.
type Engine struct {
	store   storage.EventStore
	keyring *journal.Keyring
	metrics *observability.Metrics
	clock   func() time.Time
	tracer  trace.Tracer

	registry *domain.Registry
	head     uint64

	watchBuffer int
	hub         *hub
	requests    chan request

	startOnce sync.Once
	started   chan struct{}
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

type request struct {
	ctx       context.Context
	cmd       domain.Command
	requestID string
	// read, when set, runs against the registry instead of cmd.
	read  func(*domain.Registry)
	reply chan result
}

type result struct {
	env journal.Envelope
	err error
}

// New returns an engine over store. keyring verifies the journal on Start.
func New(store storage.EventStore, keyring *journal.Keyring, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.WatchBuffer <= 0 {
		opts.WatchBuffer = defaultWatchBuffer
	}
	return &Engine{
		store:       store,
		keyring:     keyring,
		metrics:     opts.Metrics,
		clock:       opts.Clock,
		tracer:      otel.Tracer(tracerName),
		registry:    domain.NewRegistry(nil),
		watchBuffer: opts.WatchBuffer,
		hub:         newHub(opts.Metrics),
		requests:    make(chan request, opts.QueueSize),
		started:     make(chan struct{}),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start replays the journal into memory and launches the actor. Replay
// fails on the first envelope that does not verify.
func (e *Engine) Start(ctx context.Context) error {
	if e.store == nil {
		return fmt.Errorf("event store is required")
	}
	select {
	case <-e.stop:
		return ErrClosed
	default:
	}
	err := fmt.Errorf("registry engine already started")
	e.startOnce.Do(func() {
		err = e.replay(ctx)
		if err != nil {
			return
		}
		close(e.started)
		go e.run()
	})
	return err
}

func (e *Engine) replay(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "registry.Replay")
	defer span.End()

	verifier := journal.NewVerifier(e.keyring)
	err := e.store.ReplayEvents(ctx, func(env journal.Envelope) error {
		if err := verifier.Next(env); err != nil {
			return err
		}
		evt, err := env.Event()
		if err != nil {
			return err
		}
		if err := e.registry.Restore(evt); err != nil {
			return fmt.Errorf("restore event %d: %w", env.Seq, err)
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("replay journal: %w", err)
	}
	e.head = verifier.Last().Seq
	span.SetAttributes(attribute.Int64("gns.journal.head", int64(e.head)))
	e.observeState()
	log.Printf("registry replayed %d events", e.head)
	return nil
}

// Close stops the actor and disconnects watchers. Pending requests fail
// with ErrClosed.
func (e *Engine) Close() {
	e.stopOnce.Do(func() {
		close(e.stop)
		select {
		case <-e.started:
			<-e.done
		default:
		}
		e.hub.close()
	})
}

// Execute runs one command and returns its sealed envelope. Rejections are
// returned as domain errors and leave no trace in the journal.
func (e *Engine) Execute(ctx context.Context, cmd domain.Command, requestID string) (journal.Envelope, error) {
	ctx, span := e.tracer.Start(ctx, "registry.Execute", trace.WithAttributes(
		attribute.String("gns.command", string(cmd.Type)),
		attribute.String("gns.caller", cmd.Caller.Hex()),
	))
	defer span.End()

	res, err := e.submit(ctx, request{ctx: ctx, cmd: cmd, requestID: requestID})
	if err == nil {
		err = res.err
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("gns.error_code", string(apperrors.CodeOf(err))))
		return journal.Envelope{}, err
	}
	span.SetAttributes(attribute.Int64("gns.journal.seq", int64(res.env.Seq)))
	return res.env, nil
}

// State returns a snapshot of the in-memory registry.
func (e *Engine) State(ctx context.Context) (*domain.State, error) {
	var state *domain.State
	_, err := e.submit(ctx, request{ctx: ctx, read: func(r *domain.Registry) {
		state = r.State()
	}})
	return state, err
}

// Head returns the sequence of the latest applied event.
func (e *Engine) Head(ctx context.Context) (uint64, error) {
	var head uint64
	_, err := e.submit(ctx, request{ctx: ctx, read: func(*domain.Registry) {
		head = e.head
	}})
	return head, err
}

func (e *Engine) submit(ctx context.Context, req request) (result, error) {
	select {
	case <-e.started:
	default:
		select {
		case <-e.stop:
			return result{}, ErrClosed
		default:
			return result{}, ErrNotStarted
		}
	}
	req.reply = make(chan result, 1)
	select {
	case e.requests <- req:
	case <-e.stop:
		return result{}, ErrClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-e.done:
		return result{}, ErrClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.stop:
			return
		case req := <-e.requests:
			if req.read != nil {
				req.read(e.registry)
				req.reply <- result{}
				continue
			}
			req.reply <- e.handle(req)
		}
	}
}

func (e *Engine) handle(req request) result {
	start := time.Now()
	cmdType := string(req.cmd.Type)

	if err := req.ctx.Err(); err != nil {
		return result{err: err}
	}
	evt, err := e.registry.Decide(req.cmd)
	if err != nil {
		e.metrics.ObserveCommand(cmdType, string(apperrors.CodeOf(err)), time.Since(start))
		return result{err: err}
	}

	env, err := journal.FromEvent(evt, e.clock(), req.requestID)
	if err != nil {
		e.metrics.ObserveCommand(cmdType, observability.OutcomeFailed, time.Since(start))
		return result{err: fmt.Errorf("build envelope: %w", err)}
	}
	// The write must not be abandoned halfway by a caller cancellation.
	sealed, err := e.store.AppendEvents(context.WithoutCancel(req.ctx), []journal.Envelope{env})
	if err != nil {
		log.Printf("persist %s: %v", cmdType, err)
		e.metrics.ObserveCommand(cmdType, observability.OutcomeFailed, time.Since(start))
		return result{err: fmt.Errorf("persist %s: %w", cmdType, err)}
	}
	if err := e.registry.Apply(evt); err != nil {
		// Decide accepted the event, so a fold failure means memory and the
		// journal disagree. Stop accepting writes.
		log.Printf("fold persisted event %d: %v", sealed[0].Seq, err)
		go e.Close()
		return result{err: fmt.Errorf("apply %s: %w", cmdType, err)}
	}
	e.head = sealed[0].Seq
	e.hub.publish(sealed[0])

	e.metrics.ObserveCommand(cmdType, observability.OutcomeAccepted, time.Since(start))
	e.observeState()
	return result{env: sealed[0]}
}

func (e *Engine) observeState() {
	e.metrics.SetJournalHead(e.head)
	e.metrics.SetRecordCounts(e.registry.Counts())
}
