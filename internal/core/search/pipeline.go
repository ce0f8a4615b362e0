// Package search turns keystrokes into event listings: a debounced query,
// latest-wins fetching, and local filters over whatever the backend returned.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/evently/evently-web/internal/core/domain"
	"github.com/evently/evently-web/internal/core/ports"
)

// View is a consistent snapshot of the pipeline for rendering.
type View struct {
	// RawQuery is what the user typed, updated on every keystroke.
	RawQuery string
	// Query is the committed (debounced) text the results belong to.
	Query string
	// Results are the fetched events after local filters.
	Results []domain.Event
	// Total is the number of fetched events before local filters.
	Total   int
	Loading bool
	Err     error
}

// Pipeline owns one search surface. It is safe for concurrent use.
type Pipeline struct {
	searcher ports.EventSearcher
	debounce *Debouncer
	clock    clockwork.Clock
	log      zerolog.Logger
	onChange func()

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	raw       string
	committed string
	started   bool
	issued    uint64
	results   []domain.Event
	loading   bool
	err       error
	closed    bool
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithChangeHook registers fn to run after every state change, outside the
// pipeline lock.
func WithChangeHook(fn func()) PipelineOption {
	return func(p *Pipeline) { p.onChange = fn }
}

// NewPipeline returns an idle pipeline. Call Start to issue the initial
// listing fetch.
func NewPipeline(searcher ports.EventSearcher, clock clockwork.Clock, window time.Duration, log zerolog.Logger, opts ...PipelineOption) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		searcher: searcher,
		debounce: NewDebouncer(clock, window),
		clock:    clock,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start fetches the unfiltered listing. Calling it again is a no-op.
func (p *Pipeline) Start() {
	p.mu.Lock()
	if p.closed || p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	seq := p.issueLocked()
	q := p.committed
	p.mu.Unlock()

	go p.fetch(seq, q)
	p.changed()
}

// SetQuery records a keystroke. The raw text updates immediately; the
// committed query follows once typing pauses for the debounce window.
func (p *Pipeline) SetQuery(text string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.raw = text
	p.mu.Unlock()

	p.debounce.Schedule(func() { p.commit(text) })
	p.changed()
}

// Flush commits the current raw text without waiting for the window, e.g.
// when the user presses enter. After a failed fetch it retries the same
// query.
func (p *Pipeline) Flush() {
	p.mu.Lock()
	raw := p.raw
	p.mu.Unlock()

	p.debounce.Clear()
	p.commit(raw)
}

// View returns the current state with c applied to the results.
func (p *Pipeline) View(c Criteria) View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return View{
		RawQuery: p.raw,
		Query:    p.committed,
		Results:  Apply(p.results, c),
		Total:    len(p.results),
		Loading:  p.loading,
		Err:      p.err,
	}
}

// Close cancels the pending commit and any in-flight request. Responses
// that arrive afterwards are dropped.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.loading = false
	p.mu.Unlock()

	p.debounce.Stop()
	p.cancel()
}

func (p *Pipeline) commit(text string) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	// An unchanged query is only refetched when the last fetch failed.
	if p.started && p.err == nil && normalize(text) == normalize(p.committed) {
		p.committed = text
		p.mu.Unlock()
		return
	}
	p.started = true
	p.committed = text
	seq := p.issueLocked()
	p.mu.Unlock()

	go p.fetch(seq, text)
	p.changed()
}

// issueLocked allocates the sequence number of a new request. Only the
// holder of the latest number may settle the results.
func (p *Pipeline) issueLocked() uint64 {
	p.issued++
	p.loading = true
	return p.issued
}

func (p *Pipeline) fetch(seq uint64, query string) {
	start := p.clock.Now()
	events, err := p.searcher.SearchEvents(p.ctx, query)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if seq != p.issued {
		p.mu.Unlock()
		p.log.Debug().Str("query", query).Uint64("seq", seq).Msg("discarding superseded search response")
		return
	}
	p.loading = false
	if err != nil {
		p.results = nil
		p.err = err
	} else {
		p.results = events
		p.err = nil
	}
	p.mu.Unlock()

	if err != nil {
		p.log.Warn().Err(err).Str("query", query).Msg("event search failed")
	} else {
		p.log.Debug().
			Str("query", query).
			Int("results", len(events)).
			Dur("latency", p.clock.Since(start)).
			Msg("event search settled")
	}
	p.changed()
}

func (p *Pipeline) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

func normalize(q string) string { return strings.TrimSpace(q) }
