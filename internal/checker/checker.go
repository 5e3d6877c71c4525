// Package checker scans a site's text for keywords and decides, from the
// stored alert flag, whether a notification is due.
package checker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattmezza/ticketwatch/internal/fetcher"
	"github.com/mattmezza/ticketwatch/internal/normalize"
	"github.com/mattmezza/ticketwatch/internal/notifier"
	"github.com/mattmezza/ticketwatch/internal/state"
)

type Result string

const (
	ResultSkipped  Result = "skipped"  // fetch or parse failed, state untouched
	ResultFired    Result = "fired"    // match appeared, notification sent
	ResultActive   Result = "active"   // match persists, already notified
	ResultClear    Result = "clear"    // no match, no prior alert
	ResultResolved Result = "resolved" // match disappeared, alert re-armed
)

type Site struct {
	Name string
	URL  string
}

// Outcome is the result of checking one site.
type Outcome struct {
	Site    Site
	Result  Result
	Keyword string // normalized keyword that matched, if any
	Err     error  // set when Result is ResultSkipped
}

// PassSummary counts outcomes of one pass over all sites.
type PassSummary struct {
	Outcomes []Outcome
	Counts   map[Result]int
}

func (ps PassSummary) Count(r Result) int { return ps.Counts[r] }

type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Page, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg notifier.Message) int
}

type Options struct {
	// NotifyOnClear also sends a CLEARED message when an active alert's
	// match disappears.
	NotifyOnClear bool
}

type Checker struct {
	fetcher       PageFetcher
	dispatcher    Dispatcher
	keywords      []string
	notifyOnClear bool
	now           func() time.Time
	log           zerolog.Logger
}

// New builds a Checker. Keywords are normalized once here.
func New(f PageFetcher, d Dispatcher, keywords []string, opts Options, log zerolog.Logger) *Checker {
	return &Checker{
		fetcher:       f,
		dispatcher:    d,
		keywords:      normalize.Keywords(keywords),
		notifyOnClear: opts.NotifyOnClear,
		now:           time.Now,
		log:           log,
	}
}

// Keywords returns the normalized keywords in match order.
func (c *Checker) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

// Check fetches one site and updates its flag in st. Failures are logged
// and leave st untouched.
func (c *Checker) Check(ctx context.Context, site Site, st state.State) Outcome {
	log := c.log.With().Str("site", site.Name).Logger()

	page, err := c.fetcher.Fetch(ctx, site.URL)
	if err != nil {
		log.Error().Err(err).Str("url", site.URL).Msg("check failed, skipping site")
		return Outcome{Site: site, Result: ResultSkipped, Err: err}
	}

	keyword, matched := normalize.FirstMatch(normalize.Text(page.Text), c.keywords)
	wasActive := st.Active(site.Name)

	switch {
	case matched && !wasActive:
		log.Info().Str("keyword", keyword).Msg("keyword found, sending alert")
		c.dispatcher.Dispatch(ctx, c.message(site, keyword, notifier.EventFired))
		st[site.Name] = true
		return Outcome{Site: site, Result: ResultFired, Keyword: keyword}

	case matched:
		log.Debug().Str("keyword", keyword).Msg("keyword still present, alert already sent")
		return Outcome{Site: site, Result: ResultActive, Keyword: keyword}

	case wasActive:
		log.Info().Msg("keyword no longer present, alert re-armed")
		st[site.Name] = false
		if c.notifyOnClear {
			c.dispatcher.Dispatch(ctx, c.message(site, "", notifier.EventCleared))
		}
		return Outcome{Site: site, Result: ResultResolved}

	default:
		log.Debug().Dur("fetched_in", page.FetchedIn).Msg("no keyword found")
		st[site.Name] = false
		return Outcome{Site: site, Result: ResultClear}
	}
}

// CheckAll checks sites one at a time, in order. It stops early, without
// touching the remaining sites, if ctx is cancelled.
func (c *Checker) CheckAll(ctx context.Context, sites []Site, st state.State) PassSummary {
	summary := PassSummary{Counts: make(map[Result]int)}
	for _, site := range sites {
		if ctx.Err() != nil {
			c.log.Warn().Err(ctx.Err()).Msg("pass interrupted")
			break
		}
		out := c.Check(ctx, site, st)
		summary.Outcomes = append(summary.Outcomes, out)
		summary.Counts[out.Result]++
	}
	return summary
}

func (c *Checker) message(site Site, keyword string, ev notifier.Event) notifier.Message {
	return notifier.Message{
		SiteName: site.Name,
		URL:      site.URL,
		Keyword:  keyword,
		Event:    ev,
		Time:     c.now(),
	}
}
