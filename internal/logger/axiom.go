package logger

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"

	"github.com/jerefrer/stacked-pdf-generator/internal/config"
)

const (
	forwardBuffer = 1000
	batchSize     = 200
	ingestTimeout = 15 * time.Second
)

// forwarder batches log events and ships them to Axiom in the background.
// Events are dropped rather than blocking the logging path when the buffer
// fills up.
type forwarder struct {
	client  *axiom.Client
	dataset string
	ch      chan axiom.Event
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func newForwarder(cfg config.AxiomConfig) (*forwarder, error) {
	opts := []axiom.Option{axiom.SetToken(cfg.APIKey)}
	if cfg.OrgID != "" {
		opts = append(opts, axiom.SetOrganizationID(cfg.OrgID))
	}
	client, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &forwarder{
		client:  client,
		dataset: cfg.Dataset,
		ch:      make(chan axiom.Event, forwardBuffer),
		cancel:  cancel,
	}

	flushEvery := cfg.FlushInterval
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	f.wg.Add(1)
	go f.loop(ctx, flushEvery)
	return f, nil
}

func (f *forwarder) writer() io.Writer { return &forwardWriter{fwd: f} }

func (f *forwarder) send(ev axiom.Event) {
	select {
	case f.ch <- ev:
	default:
	}
}

func (f *forwarder) loop(ctx context.Context, flushEvery time.Duration) {
	defer f.wg.Done()
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	batch := make([]axiom.Event, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ingestCtx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		_, _ = f.client.IngestEvents(ingestCtx, f.dataset, batch)
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case ev := <-f.ch:
			batch = append(batch, ev)
			if len(batch) >= batchSize {
				flush()
			}
		}
	}
}

func (f *forwarder) close() {
	f.cancel()
	f.wg.Wait()
}

// forwardWriter adapts zerolog's JSON lines into Axiom events, skipping
// debug noise.
type forwardWriter struct {
	fwd *forwarder
}

func (w *forwardWriter) Write(p []byte) (int, error) {
	var ev map[string]interface{}
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]interface{}{"message": string(p), "level": "info"}
	}
	if lvl, ok := ev["level"].(string); ok && lvl == "debug" {
		return len(p), nil
	}
	ev["service"] = "stackedpdf"
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	w.fwd.send(axiom.Event(ev))
	return len(p), nil
}
