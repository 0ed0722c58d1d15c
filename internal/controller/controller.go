// Package controller owns the month/year refresh protocol of one dashboard
// viewer: which fetches a period selection issues, how each completion
// updates its own region, and which completions are too old to apply.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"killstats/internal/api"
	"killstats/internal/constants"
	"killstats/internal/domain"
	"killstats/internal/resources"
	"killstats/internal/view"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrStale is returned when a result arrived after a newer request for the
// same region had already been issued. The result was discarded.
var ErrStale = errors.New("stale response discarded")

// RegionPeriod marks the update sent when a refresh starts and only the
// period, label and loading flags changed.
const RegionPeriod view.Region = "period"

// Source is where the controller gets its data from.
type Source interface {
	Resources(entity domain.Entity, period domain.Period) resources.ResourceSet
	Stats(ctx context.Context, entity domain.Entity, period domain.Period) (domain.Stats, error)
	Halls(ctx context.Context, entity domain.Entity, period domain.Period) (*domain.Halls, error)
	Killmails(ctx context.Context, entity domain.Entity, period domain.Period, mode resources.Resource, q domain.TableQuery) (*domain.KillmailPage, error)
}

// RegionUpdate is delivered to listeners after a change was applied.
// Version increases with every delivered update.
type RegionUpdate struct {
	Version uint64      `json:"version"`
	Token   uint64      `json:"token"`
	Region  view.Region `json:"region"`
	State   view.State  `json:"state"`
}

// Listener receives updates in the order they were applied. It runs with
// the notification lock held and must not call back into the Controller;
// everything it needs is in the update.
type Listener func(RegionUpdate)

type Controller struct {
	entity domain.Entity
	source Source
	logger zerolog.Logger

	mu      sync.Mutex
	token   uint64
	seq     map[view.Region]uint64
	queries map[view.Region]domain.TableQuery
	cancel  context.CancelFunc
	state   view.State
	version uint64

	notifyMu     sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

func New(entity domain.Entity, source Source, now time.Time, logger zerolog.Logger) (*Controller, error) {
	if err := entity.Validate(); err != nil {
		return nil, fmt.Errorf("invalid entity: %w", err)
	}

	period := domain.CurrentPeriod(now)
	state := view.NewState(entity, period)
	state.Top10URL = source.Resources(entity, period).Top10

	return &Controller{
		entity: entity,
		source: source,
		logger: logger.With().Str("entity", entity.String()).Logger(),
		seq:    make(map[view.Region]uint64, len(view.Regions)),
		queries: map[view.Region]domain.TableQuery{
			view.RegionKills:  domain.DefaultTableQuery(),
			view.RegionLosses: domain.DefaultTableQuery(),
		},
		state:     state,
		listeners: make(map[int]Listener),
	}, nil
}

func (c *Controller) Entity() domain.Entity {
	return c.entity
}

func (c *Controller) Period() domain.Period {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Period()
}

// View returns a copy of the current view model.
func (c *Controller) View() view.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

func (c *Controller) CurrentActiveTab() domain.ActiveTab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Halls.ActiveTab
}

// Subscribe registers l and returns a function removing it again.
func (c *Controller) Subscribe(l Listener) func() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	id := c.nextListener
	c.nextListener++
	c.listeners[id] = l
	return func() {
		c.notifyMu.Lock()
		defer c.notifyMu.Unlock()
		delete(c.listeners, id)
	}
}

// Start loads the period the controller was created with.
func (c *Controller) Start(ctx context.Context) error {
	return c.Refresh(ctx, c.Period())
}

// SelectMonth refreshes the dashboard for month of the selected year.
func (c *Controller) SelectMonth(ctx context.Context, month int) error {
	return c.run(c.BeginMonth(ctx, month))
}

// SelectYear switches the year and goes back to the month view of the
// selected month in that year.
func (c *Controller) SelectYear(ctx context.Context, year int) error {
	return c.run(c.BeginYear(ctx, year))
}

// SetActiveTab activates a hall tab. Tabs without content cannot be
// activated; false is returned in that case.
func (c *Controller) SetActiveTab(tab domain.ActiveTab) bool {
	c.mu.Lock()
	halls, ok := c.state.Halls.Activate(tab)
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.state.Halls = halls
	c.publishLocked(c.token, view.RegionHalls)
	return true
}

// Refresh switches the dashboard to period. The month label changes and
// every region is hidden and marked loading before any fetch is issued.
// The regions are then fetched concurrently and each completion updates
// only its own region. Completions of a refresh that has been superseded
// are dropped. Refresh returns once all of its fetches have resolved;
// fetch failures are reported in the view, not as an error.
func (c *Controller) Refresh(ctx context.Context, period domain.Period) error {
	return c.run(c.BeginRefresh(ctx, period))
}

// Pending is a period switch that is already visible in the view and whose
// fetches have not been issued yet. Run must be called exactly once.
type Pending struct {
	c      *Controller
	ctx    context.Context
	cancel context.CancelFunc
	token  uint64
	period domain.Period
	seqs   map[view.Region]uint64
	kills  domain.TableQuery
	losses domain.TableQuery
}

// BeginRefresh claims the next request token for period and publishes the
// period update. Begin calls are ordered: the last one to return wins no
// matter in which order their fetches are run.
func (c *Controller) BeginRefresh(ctx context.Context, period domain.Period) (*Pending, error) {
	return c.begin(ctx, func(domain.Period) domain.Period { return period })
}

// BeginMonth is BeginRefresh for month of the period selected at call time.
func (c *Controller) BeginMonth(ctx context.Context, month int) (*Pending, error) {
	return c.begin(ctx, func(p domain.Period) domain.Period {
		p.Month = month
		return p
	})
}

// BeginYear is BeginRefresh for the selected month in year.
func (c *Controller) BeginYear(ctx context.Context, year int) (*Pending, error) {
	return c.begin(ctx, func(p domain.Period) domain.Period {
		p.Year = year
		return p
	})
}

// begin derives the next period from the current one and claims its token
// in a single critical section.
func (c *Controller) begin(ctx context.Context, next func(domain.Period) domain.Period) (*Pending, error) {
	c.mu.Lock()
	period := next(c.state.Period())
	if err := period.Validate(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.token++
	token := c.token

	seqs := make(map[view.Region]uint64, len(view.Regions))
	for _, r := range view.Regions {
		c.seq[r]++
		seqs[r] = c.seq[r]
		c.state.Regions[r] = view.RegionStatus{Loading: true}
	}
	for r, q := range c.queries {
		q.Start = 0
		c.queries[r] = q
	}
	p := &Pending{
		c:      c,
		ctx:    ctx,
		cancel: cancel,
		token:  token,
		period: period,
		seqs:   seqs,
		kills:  c.queries[view.RegionKills],
		losses: c.queries[view.RegionLosses],
	}

	c.state.SetPeriod(period)
	c.state.Token = token
	c.state.KillboardVisible = false
	c.state.HallVisible = false
	c.state.StatsVisible = false
	c.state.Top10URL = c.source.Resources(c.entity, period).Top10
	c.publishLocked(token, RegionPeriod)
	return p, nil
}

func (c *Controller) run(p *Pending, err error) error {
	if err != nil {
		return err
	}
	p.Run()
	return nil
}

func (p *Pending) Period() domain.Period {
	return p.period
}

// Run fetches every region of the pending period concurrently and returns
// once all of them have resolved.
func (p *Pending) Run() {
	defer p.cancel()
	c, ctx, token := p.c, p.ctx, p.token

	log := c.logger.With().Uint64("token", token).Str("period", p.period.String()).Logger()
	log.Info().Msg("refresh started")

	g := new(errgroup.Group)
	g.Go(func() error {
		c.refreshTable(ctx, token, p.seqs[view.RegionKills], p.period, view.RegionKills, p.kills)
		return nil
	})
	g.Go(func() error {
		c.refreshTable(ctx, token, p.seqs[view.RegionLosses], p.period, view.RegionLosses, p.losses)
		return nil
	})
	g.Go(func() error {
		c.refreshHalls(ctx, token, p.seqs[view.RegionHalls], p.period)
		return nil
	})
	g.Go(func() error {
		c.refreshStats(ctx, token, p.seqs[view.RegionStats], p.period)
		return nil
	})
	_ = g.Wait()

	c.mu.Lock()
	if c.token == token {
		c.cancel = nil
	}
	c.mu.Unlock()

	log.Info().Msg("refresh finished")
}

// LoadTable fetches one page of the kills or losses table for the current
// period. A page that arrives after a newer page or period request for the
// same table returns ErrStale and leaves the view untouched.
func (c *Controller) LoadTable(ctx context.Context, region view.Region, q domain.TableQuery) (view.TableView, error) {
	mode, err := tableResource(region)
	if err != nil {
		return view.TableView{}, err
	}
	q = q.Normalize(constants.MaxPageLength)

	c.mu.Lock()
	token := c.token
	c.seq[region]++
	seq := c.seq[region]
	c.queries[region] = q
	period := c.state.Period()
	c.state.Regions[region] = view.RegionStatus{Loading: true}
	c.publishLocked(token, region)

	page, fetchErr := c.source.Killmails(ctx, c.entity, period, mode, q)

	var table view.TableView
	applied := c.apply(token, seq, region, func(s *view.State) {
		table = c.tableState(s, region, page, q, fetchErr)
	})
	if !applied {
		return view.TableView{}, ErrStale
	}
	if fetchErr != nil {
		return table, fetchErr
	}
	return table, nil
}

func (c *Controller) refreshTable(ctx context.Context, token, seq uint64, period domain.Period, region view.Region, q domain.TableQuery) {
	mode, _ := tableResource(region)
	page, err := c.source.Killmails(ctx, c.entity, period, mode, q)
	c.apply(token, seq, region, func(s *view.State) {
		c.tableState(s, region, page, q, err)
		s.KillboardVisible = true
	})
}

func (c *Controller) tableState(s *view.State, region view.Region, page *domain.KillmailPage, q domain.TableQuery, err error) view.TableView {
	if err != nil {
		page = nil
	}
	table := view.RenderTable(page, q)
	if region == view.RegionKills {
		s.Kills = table
	} else {
		s.Losses = table
	}
	s.Regions[region] = regionStatus(err)
	return table
}

func (c *Controller) refreshHalls(ctx context.Context, token, seq uint64, period domain.Period) {
	halls, err := c.source.Halls(ctx, c.entity, period)
	if err != nil {
		halls = nil
	}
	c.apply(token, seq, view.RegionHalls, func(s *view.State) {
		s.Halls = view.RenderHalls(s.Halls.ActiveTab, halls)
		s.HallVisible = s.Halls.Visible
		s.KillboardVisible = true
		s.Regions[view.RegionHalls] = regionStatus(err)
	})
}

func (c *Controller) refreshStats(ctx context.Context, token, seq uint64, period domain.Period) {
	stats, err := c.source.Stats(ctx, c.entity, period)
	if err != nil {
		stats = nil
	}
	c.apply(token, seq, view.RegionStats, func(s *view.State) {
		s.Stats = view.RenderStats(c.entity, stats)
		s.StatsVisible = len(s.Stats) > 0
		s.KillboardVisible = true
		s.Regions[view.RegionStats] = regionStatus(err)
	})
}

// apply runs fn against the state if token and seq are still the latest
// for region, then notifies listeners. It reports whether fn ran.
func (c *Controller) apply(token, seq uint64, region view.Region, fn func(s *view.State)) bool {
	c.mu.Lock()
	if token != c.token || seq != c.seq[region] {
		current := c.token
		c.mu.Unlock()
		c.logger.Debug().
			Uint64("token", token).
			Uint64("current_token", current).
			Str("region", string(region)).
			Msg("stale response discarded")
		return false
	}
	fn(&c.state)
	c.publishLocked(token, region)
	return true
}

// publishLocked snapshots the state and delivers it to listeners. It must be
// called with c.mu held and releases it; the notification lock is taken
// first so listeners see updates in apply order.
func (c *Controller) publishLocked(token uint64, region view.Region) {
	c.version++
	update := RegionUpdate{
		Version: c.version,
		Token:   token,
		Region:  region,
		State:   c.state.Clone(),
	}
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, l := range c.listeners {
		l(update)
	}
}

func tableResource(region view.Region) (resources.Resource, error) {
	switch region {
	case view.RegionKills:
		return resources.Kills, nil
	case view.RegionLosses:
		return resources.Losses, nil
	}
	return "", fmt.Errorf("unknown table %q", region)
}

func regionStatus(err error) view.RegionStatus {
	if err == nil {
		return view.RegionStatus{}
	}
	return view.RegionStatus{Error: ErrorMessage(err)}
}

// ErrorMessage is the short text shown in place of a region that failed to load.
func ErrorMessage(err error) string {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		return fmt.Sprintf("The killboard backend answered with HTTP %d.", apiErr.StatusCode)
	case errors.Is(err, api.ErrMalformedPayload):
		return "The killboard backend sent data that could not be read."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled or timed out."
	}
	return "The killboard backend could not be reached."
}
