// Package dispatch pulls conversion jobs off the queue and runs them through
// the generator, recording status and metrics along the way.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jerefrer/stacked-pdf-generator/internal/generator"
	"github.com/jerefrer/stacked-pdf-generator/internal/metrics"
	"github.com/jerefrer/stacked-pdf-generator/internal/store"
)

// Job is the queue payload for one conversion.
type Job struct {
	ID            string `json:"job_id"`
	Input         string `json:"input"`
	Output        string `json:"output"`
	Rows          int    `json:"rows,omitempty"`
	Columns       int    `json:"columns,omitempty"`
	PagesPerSheet int    `json:"pages_per_sheet,omitempty"`
	Paper         string `json:"paper,omitempty"`
	Autoscale     string `json:"autoscale,omitempty"`
	Portrait      bool   `json:"portrait"`
	SheetMargins  string `json:"sheet_margins,omitempty"`
	Verify        bool   `json:"verify,omitempty"`
	// Source records how the job entered the system ("api" or "upload");
	// downloads are only offered for uploads, whose outputs we own.
	Source string `json:"source,omitempty"`
}

// Options maps the payload onto generator options.
func (j Job) Options() generator.Options {
	return generator.Options{
		Input:         j.Input,
		Output:        j.Output,
		Rows:          j.Rows,
		Columns:       j.Columns,
		PagesPerSheet: j.PagesPerSheet,
		Paper:         j.Paper,
		Autoscale:     j.Autoscale,
		Portrait:      j.Portrait,
		SheetMargins:  j.SheetMargins,
		Verify:        j.Verify,
	}
}

// Queue is the slice of the job queue the pool needs.
type Queue interface {
	Dequeue(ctx context.Context, consumer string, timeout time.Duration) (string, []byte, error)
	IsCancelled(ctx context.Context, jobID string) (bool, error)
	Depth(ctx context.Context) (int64, error)
}

// StatusStore records job lifecycle transitions.
type StatusStore interface {
	Set(ctx context.Context, jobID string, st store.Status) error
}

// Converter runs one conversion. Satisfied by *generator.Generator.
type Converter interface {
	Generate(ctx context.Context, opts generator.Options) generator.Result
}

// Config tunes the pool.
type Config struct {
	Concurrency int
	JobTimeout  time.Duration
	Poll        time.Duration
}

// Pool is a fixed set of workers consuming the conversion stream.
type Pool struct {
	cfg  Config
	q    Queue
	st   StatusStore
	conv Converter
	stop chan struct{}
	wg   sync.WaitGroup
}

func New(cfg Config, q Queue, st StatusStore, conv Converter) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 2 * time.Second
	}
	return &Pool{cfg: cfg, q: q, st: st, conv: conv, stop: make(chan struct{})}
}

// Start launches the workers and the queue depth reporter.
func (p *Pool) Start() {
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.wg.Add(1)
	go p.reportDepth()
}

// Stop asks all workers to finish their current job and waits for them.
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	consumer := fmt.Sprintf("worker-%d", id)
	log.Info().Str("consumer", consumer).Msg("conversion worker started")

	for {
		select {
		case <-p.stop:
			log.Info().Str("consumer", consumer).Msg("conversion worker stopped")
			return
		default:
		}

		_, data, err := p.q.Dequeue(context.Background(), consumer, p.cfg.Poll)
		if err != nil {
			log.Error().Err(err).Msg("queue dequeue error")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if data == nil {
			continue
		}

		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			log.Error().Err(err).Str("payload", string(data)).Msg("dropping undecodable job")
			continue
		}

		if cancelled, _ := p.q.IsCancelled(context.Background(), job.ID); cancelled {
			log.Warn().Str("job_id", job.ID).Msg("job cancelled before processing; skipping")
			p.setStatus(job, store.Status{State: store.StateCancelled, Metadata: job.metadata()})
			metrics.IncCancelled()
			continue
		}

		p.process(job)
	}
}

func (p *Pool) process(job Job) {
	start := time.Now()
	metrics.JobStarted()
	defer metrics.JobFinished()

	p.setStatus(job, store.Status{
		State:    store.StateProcessing,
		Start:    &start,
		Metadata: job.metadata(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.JobTimeout)
	res := p.conv.Generate(ctx, job.Options())
	cancel()

	end := time.Now()
	status := store.Status{
		State:    store.StateSuccess,
		Start:    &start,
		End:      &end,
		Metadata: job.metadata(),
	}
	result := "ok"
	if !res.Success {
		status.State = store.StateFailed
		status.Message = res.Message
		result = "failed"
	}
	p.setStatus(job, status)
	metrics.ObserveConversion(result, end.Sub(start))
}

func (p *Pool) setStatus(job Job, st store.Status) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := p.st.Set(ctx, job.ID, st); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("failed to record job status")
	}
}

func (j Job) metadata() map[string]interface{} {
	return map[string]interface{}{
		"input":  j.Input,
		"output": j.Output,
		"source": j.Source,
	}
}

// reportDepth keeps the queue depth gauge current while the pool runs.
func (p *Pool) reportDepth() {
	defer p.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if depth, err := p.q.Depth(ctx); err == nil {
				metrics.SetQueueDepth(depth)
			}
			cancel()
		}
	}
}
