// internal/crawler/controller.go

// Package crawler drives the per-target page loop: fetch, extract with
// tier fallback, save up to the result budget, decide the next page.
// The whole crawl runs on one worker with one page in flight, so the
// run state needs no locking.
package crawler

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/propdata/agentharvest/internal/agents"
	"github.com/propdata/agentharvest/internal/dedup"
	"github.com/propdata/agentharvest/internal/extract"
	"github.com/propdata/agentharvest/internal/fetch"
	"github.com/propdata/agentharvest/internal/monitoring"
	"github.com/propdata/agentharvest/internal/utils"
)

// ErrNoStartURLs is returned when a run is started without any seed
// URLs. It is the only error that aborts a run outright.
var ErrNoStartURLs = errors.New("no start URLs configured")

// assumedPageYield is the per-page record estimate used to derive the
// page budget when none is configured.
const assumedPageYield = 10

// Phase is the controller's position in the per-page state machine.
type Phase string

const (
	PhaseFetching   Phase = "fetching"
	PhaseExtracting Phase = "extracting"
	PhaseSaving     Phase = "saving"
	PhaseDeciding   Phase = "deciding"
)

// Sink persists a batch of records. Batches are append-only and
// order-preserving; no transactionality is assumed across batches.
type Sink interface {
	Write(ctx context.Context, records []agents.Record) error
}

// Config wires the controller's collaborators and budgets.
type Config struct {
	Fetcher    fetch.Fetcher
	Escalated  fetch.Fetcher // optional, used once per soft-blocked page
	Extractors *extract.Registry
	Sink       Sink
	Metrics    *monitoring.Metrics
	Log        utils.Logger

	ResultsWanted int
	MaxPages      int
	PageDelay     time.Duration
	BlockWait     time.Duration
}

// Controller runs the crawl.
type Controller struct {
	fetcher    fetch.Fetcher
	escalated  fetch.Fetcher
	extractors *extract.Registry
	sink       Sink
	metrics    *monitoring.Metrics
	log        utils.Logger

	resultsWanted int
	maxPages      int
	pageDelay     time.Duration
	blockWait     time.Duration

	phase Phase
}

// Summary is the run's outcome.
type Summary struct {
	Started      time.Time
	Elapsed      time.Duration
	Targets      int
	PagesFetched int
	Extracted    int
	Saved        int
	Duplicates   int
	SoftBlocks   int
	FetchErrors  int
	SinkErrors   int
}

// runState is the crawl's mutable state, owned exclusively by the
// sequential controller loop.
type runState struct {
	seen     *dedup.Set
	enqueued map[string]bool
	saved    int
	buildID  string
}

// New builds a controller, deriving the page budget from the result
// budget when it is not set explicitly.
func New(config Config) *Controller {
	if config.ResultsWanted <= 0 {
		config.ResultsWanted = 50
	}
	if config.MaxPages <= 0 {
		config.MaxPages = (config.ResultsWanted + assumedPageYield - 1) / assumedPageYield
	}
	if config.PageDelay == 0 {
		config.PageDelay = time.Second
	}
	if config.BlockWait == 0 {
		config.BlockWait = 5 * time.Second
	}
	if config.Log == nil {
		config.Log = utils.NewComponentLogger("crawler")
	}
	if config.Extractors == nil {
		config.Extractors = extract.Default(config.Log)
	}

	return &Controller{
		fetcher:       config.Fetcher,
		escalated:     config.Escalated,
		extractors:    config.Extractors,
		sink:          config.Sink,
		metrics:       config.Metrics,
		log:           config.Log,
		resultsWanted: config.ResultsWanted,
		maxPages:      config.MaxPages,
		pageDelay:     config.PageDelay,
		blockWait:     config.BlockWait,
	}
}

// Phase returns the controller's current state-machine position.
func (c *Controller) Phase() Phase { return c.phase }

// Run crawls every target in order until the result budget is spent.
// Per-target failures stop that target's pagination and the run moves
// on; only a missing target list fails the run.
func (c *Controller) Run(ctx context.Context, targets []string) (*Summary, error) {
	if len(targets) == 0 {
		return nil, ErrNoStartURLs
	}

	state := &runState{
		seen:     dedup.NewSet(),
		enqueued: make(map[string]bool),
	}
	summary := &Summary{
		Started: time.Now().UTC(),
		Targets: len(targets),
	}

	c.log.WithFields(map[string]interface{}{
		"targets":   len(targets),
		"wanted":    c.resultsWanted,
		"max_pages": c.maxPages,
	}).Info("crawl started")

	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		if state.saved >= c.resultsWanted {
			break
		}
		c.crawlTarget(ctx, target, state, summary)
	}

	summary.Saved = state.saved
	summary.Elapsed = time.Since(summary.Started)

	c.log.WithFields(map[string]interface{}{
		"pages":      summary.PagesFetched,
		"saved":      summary.Saved,
		"duplicates": summary.Duplicates,
		"elapsed":    summary.Elapsed.Round(time.Millisecond).String(),
	}).Info("crawl finished")

	return summary, nil
}

// crawlTarget pages through one start URL until a budget runs out, the
// site runs out of pages, or the page is abandoned.
func (c *Controller) crawlTarget(ctx context.Context, target string, state *runState, summary *Summary) {
	log := c.log.WithField("target", target)
	pageURL := target

	for pageNum := 1; pageNum <= c.maxPages; pageNum++ {
		if ctx.Err() != nil {
			return
		}
		if state.enqueued[pageURL] {
			log.WithField("url", pageURL).Debug("page already visited")
			return
		}
		state.enqueued[pageURL] = true

		parsed, err := url.Parse(pageURL)
		if err != nil {
			log.WithField("url", pageURL).Warnf("unparseable page URL: %v", err)
			return
		}

		c.enter(PhaseFetching, pageNum)
		if summary.PagesFetched > 0 {
			if c.pause(ctx, c.pageDelay) != nil {
				return
			}
		}

		body, err := c.fetchPage(ctx, parsed, state, pageNum)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.metrics.FetchError()
			summary.FetchErrors++
			log.WithFields(map[string]interface{}{
				"url":  pageURL,
				"page": pageNum,
			}).Warnf("page abandoned, stopping target: %v", err)
			return
		}
		summary.PagesFetched++

		if fetch.IsSoftBlock(body) {
			c.metrics.SoftBlock()
			summary.SoftBlocks++
			log.WithField("url", pageURL).Warn("challenge page detected, re-fetching escalated")
			if escalatedBody, ok := c.refetchEscalated(ctx, pageURL); ok {
				body = escalatedBody
			}
			// one escalation per page, proceed with whatever we have
		}

		c.enter(PhaseExtracting, pageNum)
		page := extract.NewPage(parsed, body)
		result := c.extractors.ExtractFirst(ctx, page)
		if state.buildID == "" && result.BuildID != "" {
			state.buildID = result.BuildID
			log.WithField("token", state.buildID).Debug("payload build token discovered")
		}
		if len(result.Records) > 0 {
			summary.Extracted += len(result.Records)
			c.metrics.TierWin(string(result.Records[0].Source), len(result.Records))
		}
		batch := dedup.Collapse(result.Records)

		c.enter(PhaseSaving, pageNum)
		fresh, duplicates := c.takeFresh(batch, state)
		if duplicates > 0 {
			c.metrics.DuplicatesSkipped(duplicates)
			summary.Duplicates += duplicates
		}
		if len(fresh) > 0 {
			if err := c.sink.Write(ctx, fresh); err != nil {
				c.metrics.SinkError()
				summary.SinkErrors++
				log.Errorf("sink write failed, stopping target: %v", err)
				return
			}
			state.saved += len(fresh)
			c.metrics.RecordsSaved(len(fresh))
			log.WithFields(map[string]interface{}{
				"page":  pageNum,
				"saved": len(fresh),
				"total": state.saved,
			}).Info("records saved")
		}

		c.enter(PhaseDeciding, pageNum)
		if len(batch) == 0 {
			log.WithField("page", pageNum).Info("page yielded nothing, assuming last page")
			return
		}
		if state.saved >= c.resultsWanted {
			log.Info("result budget reached")
			return
		}
		if pageNum >= c.maxPages {
			log.Info("page budget reached")
			return
		}

		doc, _ := page.Document()
		next := NextPageURL(parsed, doc, pageNum)
		if next == "" || next == pageURL || state.enqueued[next] {
			return
		}
		pageURL = next
	}
}

// fetchPage retrieves one page. Once the build token is known, later
// pages go through the payload-only endpoint first and fall back to the
// page URL when that fails (a stale token typically 404s).
func (c *Controller) fetchPage(ctx context.Context, pageURL *url.URL, state *runState, pageNum int) (string, error) {
	if state.buildID != "" && pageNum > 1 {
		if dataURL := DataURL(pageURL, state.buildID); dataURL != "" {
			start := time.Now()
			body, err := c.fetcher.Fetch(ctx, dataURL)
			if err == nil {
				c.metrics.PageFetched("data", time.Since(start))
				return body, nil
			}
			c.log.WithField("url", dataURL).Debugf("data endpoint failed, using page URL: %v", err)
		}
	}

	start := time.Now()
	body, err := c.fetcher.Fetch(ctx, pageURL.String())
	if err != nil {
		return "", err
	}
	c.metrics.PageFetched(c.fetcher.Name(), time.Since(start))
	return body, nil
}

// refetchEscalated waits out the block and retries the page once on
// the escalated path, or on the plain path when none is configured.
func (c *Controller) refetchEscalated(ctx context.Context, pageURL string) (string, bool) {
	if c.pause(ctx, c.blockWait) != nil {
		return "", false
	}

	fetcher := c.escalated
	if fetcher == nil {
		fetcher = c.fetcher
	}

	start := time.Now()
	body, err := fetcher.Fetch(ctx, pageURL)
	if err != nil {
		c.log.Warnf("escalated fetch failed: %v", err)
		return "", false
	}
	c.metrics.PageFetched(fetcher.Name(), time.Since(start))
	return body, true
}

// takeFresh keeps the records not yet saved this run, up to the
// remaining result budget, stamping the save timestamp.
func (c *Controller) takeFresh(batch []agents.Record, state *runState) ([]agents.Record, int) {
	remaining := c.resultsWanted - state.saved
	now := time.Now().UTC()

	var fresh []agents.Record
	duplicates := 0
	for _, rec := range batch {
		if len(fresh) >= remaining {
			break
		}
		if !state.seen.Add(rec.Key) {
			duplicates++
			continue
		}
		rec.ScrapedAt = now
		fresh = append(fresh, rec)
	}
	return fresh, duplicates
}

func (c *Controller) enter(phase Phase, pageNum int) {
	c.phase = phase
	c.log.WithFields(map[string]interface{}{
		"phase": string(phase),
		"page":  pageNum,
	}).Debug("state transition")
}

// pause sleeps for the duration, honouring cancellation.
func (c *Controller) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
