package transcribe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/perudosmundos/audio-sub003/internal/metrics"
	"github.com/perudosmundos/audio-sub003/internal/transcript"
)

// Job is one transcription request for an episode's audio.
type Job struct {
	ID       string
	Slug     string
	Lang     string
	AudioURL string
}

// JobStatus is the tracked lifecycle of an enqueued job.
type JobStatus struct {
	ID         string     `json:"id"`
	Slug       string     `json:"episode_slug"`
	Lang       string     `json:"lang"`
	State      string     `json:"state"`
	Error      string     `json:"error,omitempty"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TranscriptSaver persists completed transcription output.
type TranscriptSaver interface {
	UpdateTranscript(ctx context.Context, slug, lang string, utterances []transcript.Utterance, words []transcript.Word, status string) error
}

// QueueStats reports the current state of the transcription queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// WorkerPoolOptions configures the transcription worker pool.
type WorkerPoolOptions struct {
	Client       *Client
	Saver        TranscriptSaver
	Workers      int
	QueueSize    int
	PollInterval time.Duration
	JobTimeout   time.Duration
	Log          zerolog.Logger
}

// WorkerPool runs transcription jobs: submit, poll to completion, persist.
type WorkerPool struct {
	jobs   chan Job
	opts   WorkerPoolOptions
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	registry map[string]*JobStatus

	completed atomic.Int64
	failed    atomic.Int64
}

// NewWorkerPool creates a transcription worker pool.
func NewWorkerPool(opts WorkerPoolOptions) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:     make(chan Job, opts.QueueSize),
		opts:     opts,
		log:      opts.Log.With().Str("component", "transcribe-pool").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		registry: make(map[string]*JobStatus),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.opts.Workers).Int("queue_size", wp.opts.QueueSize).Msg("transcription worker pool started")
}

// Stop signals workers to drain and waits for completion.
func (wp *WorkerPool) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("transcription worker pool stopped")
}

// Enqueue adds a job to the queue, assigning it an id. Returns the id and
// false if the queue is full.
func (wp *WorkerPool) Enqueue(j Job) (string, bool) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	select {
	case wp.jobs <- j:
		wp.setStatus(&JobStatus{
			ID:         j.ID,
			Slug:       j.Slug,
			Lang:       j.Lang,
			State:      "queued",
			EnqueuedAt: time.Now().UTC(),
		})
		return j.ID, true
	default:
		return "", false
	}
}

// Status returns the tracked status of a job by id.
func (wp *WorkerPool) Status(id string) (JobStatus, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	st, ok := wp.registry[id]
	if !ok {
		return JobStatus{}, false
	}
	return *st, true
}

// Stats returns current queue statistics.
func (wp *WorkerPool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(wp.jobs),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

func (wp *WorkerPool) setStatus(st *JobStatus) {
	wp.mu.Lock()
	wp.registry[st.ID] = st
	wp.mu.Unlock()
}

func (wp *WorkerPool) transition(id, state, errMsg string) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	st, ok := wp.registry[id]
	if !ok {
		return
	}
	st.State = state
	st.Error = errMsg
	if state == "completed" || state == "error" {
		now := time.Now().UTC()
		st.FinishedAt = &now
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for job := range wp.jobs {
		wp.transition(job.ID, "processing", "")
		if err := wp.process(job); err != nil {
			wp.failed.Add(1)
			metrics.TranscriptionJobs.WithLabelValues("error").Inc()
			wp.transition(job.ID, "error", err.Error())
			log.Error().Err(err).Str("slug", job.Slug).Str("lang", job.Lang).Msg("transcription failed")

			saveCtx, cancel := context.WithTimeout(wp.ctx, 10*time.Second)
			if saveErr := wp.opts.Saver.UpdateTranscript(saveCtx, job.Slug, job.Lang, nil, nil, "failed"); saveErr != nil {
				log.Warn().Err(saveErr).Str("slug", job.Slug).Msg("could not record failure status")
			}
			cancel()
			continue
		}
		wp.completed.Add(1)
		metrics.TranscriptionJobs.WithLabelValues("ok").Inc()
		wp.transition(job.ID, "completed", "")
		log.Info().Str("slug", job.Slug).Str("lang", job.Lang).Msg("transcription completed")
	}
}

func (wp *WorkerPool) process(job Job) error {
	ctx, cancel := context.WithTimeout(wp.ctx, wp.opts.JobTimeout)
	defer cancel()

	if err := wp.opts.Saver.UpdateTranscript(ctx, job.Slug, job.Lang, nil, nil, "processing"); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	id, err := wp.opts.Client.Submit(ctx, job.AudioURL, job.Lang)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	res, err := wp.waitForResult(ctx, id)
	if err != nil {
		return err
	}

	if err := wp.opts.Saver.UpdateTranscript(ctx, job.Slug, job.Lang, res.Utterances, res.Words, "ready"); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

func (wp *WorkerPool) waitForResult(ctx context.Context, id string) (*Result, error) {
	ticker := time.NewTicker(wp.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		res, err := wp.opts.Client.Poll(ctx, id)
		if err != nil {
			// Transient poll failures are retried until the job deadline.
			wp.log.Debug().Err(err).Str("id", id).Msg("poll failed, retrying")
			continue
		}
		switch res.Status {
		case "completed":
			return res, nil
		case "error":
			return nil, fmt.Errorf("transcription error: %s", res.Error)
		}
	}
}
