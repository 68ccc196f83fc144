package stt

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// defaultQueueSize bounds the transcription backlog. Segments beyond it are
// dropped rather than allowed to grow memory while the engine is behind.
const defaultQueueSize = 16

// joinTimeout bounds how long Stop waits for an in-flight transcription.
const joinTimeout = 3 * time.Second

// Job is one finalized speech segment awaiting transcription.
type Job struct {
	// PCM is the utterance as 16-bit PCM at SampleRate.
	PCM []int16

	// SampleRate is the rate of PCM in Hz.
	SampleRate int

	// CapturedAt is when the segment was finalized.
	CapturedAt time.Time

	// OnResult, when set, receives this job's transcript instead of the
	// worker's default handler. Stream servers use it to route results back
	// to their own stream.
	OnResult func(Result)
}

// ResultFunc receives transcripts for jobs without their own OnResult.
type ResultFunc func(Result, Job)

// Worker runs transcription on a single goroutine that is the sole caller of
// the engine, which is not reentrant. Jobs are processed strictly in the
// order they were enqueued.
type Worker struct {
	engine   Engine
	config   Config
	onResult ResultFunc
	log      *zap.Logger

	jobs    chan Job
	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}

	stopOnce sync.Once

	dropped atomic.Int64
}

// NewWorker creates a transcription worker around engine. The engine may be
// uninitialized; the worker initializes it lazily on the first job so a
// missing model degrades to dropped segments instead of a startup failure.
// onResult and logger may be nil.
func NewWorker(engine Engine, config Config, onResult ResultFunc, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		engine:   engine,
		config:   config,
		onResult: onResult,
		log:      logger,
		jobs:     make(chan Job, defaultQueueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("worker already running")
	}
	go w.run()
	w.log.Info("transcription worker started", zap.Int("queue_size", cap(w.jobs)))
	return nil
}

// Enqueue hands a segment to the worker without blocking. When the queue is
// full the job is dropped and false is returned.
func (w *Worker) Enqueue(job Job) bool {
	if !w.running.Load() {
		return false
	}
	select {
	case w.jobs <- job:
		return true
	default:
		n := w.dropped.Add(1)
		w.log.Warn("transcription queue full, segment dropped",
			zap.Int("samples", len(job.PCM)),
			zap.Int64("total_dropped", n))
		return false
	}
}

// QueueLen returns the number of segments waiting for transcription.
func (w *Worker) QueueLen() int {
	return len(w.jobs)
}

// Dropped returns the number of segments dropped due to a full queue.
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

// Stop shuts the worker down. Queued jobs are abandoned; an in-flight
// transcription is given a bounded grace period to finish. The second and
// later calls are no-ops.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.running.Store(false)
		close(w.stop)

		select {
		case <-w.done:
		case <-time.After(joinTimeout):
			w.log.Warn("transcription worker did not stop in time")
		}

		if err := w.engine.Close(); err != nil {
			w.log.Warn("failed to close stt engine", zap.Error(err))
		}
		w.log.Info("transcription worker stopped")
	})
}

func (w *Worker) run() {
	defer close(w.done)

	engineReady := false
	engineFailed := false

	for {
		select {
		case <-w.stop:
			return
		case job := <-w.jobs:
			if !engineReady && !engineFailed {
				if err := w.initEngine(job.SampleRate); err != nil {
					engineFailed = true
					w.log.Error("stt engine unavailable, segments will be dropped",
						zap.String("model", w.config.ModelPath),
						zap.Error(err))
				} else {
					engineReady = true
				}
			}
			if !engineReady {
				continue
			}
			w.process(job)
		}
	}
}

func (w *Worker) initEngine(sampleRate int) error {
	if w.engine.IsInitialized() {
		return nil
	}
	cfg := w.config
	if cfg.SampleRate == 0 {
		cfg.SampleRate = sampleRate
	}
	start := time.Now()
	if err := w.engine.Initialize(cfg); err != nil {
		return err
	}
	w.log.Info("stt engine initialized",
		zap.String("model", cfg.ModelPath),
		zap.Duration("load_time", time.Since(start)))
	return nil
}

func (w *Worker) process(job Job) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Abort a long-running inference on shutdown.
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	result, err := w.engine.Transcribe(ctx, job.PCM)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			w.log.Error("transcription failed",
				zap.Int("samples", len(job.PCM)),
				zap.Error(err))
		}
		return
	}

	w.log.Debug("segment transcribed",
		zap.Duration("inference", time.Since(start)),
		zap.Duration("latency", time.Since(job.CapturedAt)),
		zap.Int("chars", len(result.Text)))

	// Per-job callbacks see every outcome so stream callers can track
	// completion; the default handler only gets non-empty transcripts.
	if job.OnResult != nil {
		job.OnResult(*result)
		return
	}
	if result.Text != "" && w.onResult != nil {
		w.onResult(*result, job)
	}
}
