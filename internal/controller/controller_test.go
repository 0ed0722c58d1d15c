package controller_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"killstats/internal/api"
	"killstats/internal/controller"
	"killstats/internal/domain"
	"killstats/internal/resources"
	"killstats/internal/view"

	"github.com/rs/zerolog"
)

type mockSource struct {
	statsFunc     func(ctx context.Context, p domain.Period) (domain.Stats, error)
	hallsFunc     func(ctx context.Context, p domain.Period) (*domain.Halls, error)
	killmailsFunc func(ctx context.Context, p domain.Period, mode resources.Resource, q domain.TableQuery) (*domain.KillmailPage, error)
}

func (m *mockSource) Resources(entity domain.Entity, period domain.Period) resources.ResourceSet {
	return resources.Build("/killstats/api", entity, period)
}

func (m *mockSource) Stats(ctx context.Context, _ domain.Entity, p domain.Period) (domain.Stats, error) {
	if m.statsFunc == nil {
		return domain.Stats{}, nil
	}
	return m.statsFunc(ctx, p)
}

func (m *mockSource) Halls(ctx context.Context, _ domain.Entity, p domain.Period) (*domain.Halls, error) {
	if m.hallsFunc == nil {
		return &domain.Halls{}, nil
	}
	return m.hallsFunc(ctx, p)
}

func (m *mockSource) Killmails(ctx context.Context, _ domain.Entity, p domain.Period, mode resources.Resource, q domain.TableQuery) (*domain.KillmailPage, error) {
	if m.killmailsFunc == nil {
		return &domain.KillmailPage{Draw: q.Draw}, nil
	}
	return m.killmailsFunc(ctx, p, mode, q)
}

var (
	corp  = domain.Entity{Kind: domain.Corporation, ID: 501}
	start = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
)

func newController(t *testing.T, src controller.Source) *controller.Controller {
	t.Helper()
	c, err := controller.New(corp, src, start, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func statsFor(month int) domain.Stats {
	return domain.Stats{"top_ship": {ShipID: int64(month), ShipName: "ship", Count: int64(month)}}
}

func TestNewRejectsInvalidEntity(t *testing.T) {
	if _, err := controller.New(domain.Entity{Kind: domain.Corporation}, &mockSource{}, start, zerolog.Nop()); err == nil {
		t.Error("expected error for invalid entity")
	}
}

func TestRefreshRendersAllRegions(t *testing.T) {
	src := &mockSource{
		statsFunc: func(ctx context.Context, p domain.Period) (domain.Stats, error) { return statsFor(p.Month), nil },
		hallsFunc: func(ctx context.Context, p domain.Period) (*domain.Halls, error) {
			return &domain.Halls{Fame: []domain.HallEntry{{CharacterName: "Alice", TotalValue: 1e6}}}, nil
		},
	}
	c := newController(t, src)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	v := c.View()
	if v.Month != 6 || v.Year != 2024 || v.MonthLabel != "Killboard Month - June" {
		t.Errorf("period = %d/%d %q", v.Month, v.Year, v.MonthLabel)
	}
	if v.Loading() {
		t.Errorf("regions still loading: %+v", v.Regions)
	}
	if !v.KillboardVisible || !v.StatsVisible || !v.HallVisible {
		t.Errorf("containers hidden: killboard %v stats %v hall %v", v.KillboardVisible, v.StatsVisible, v.HallVisible)
	}
	if v.Halls.ActiveTab != domain.TabFame || v.Halls.Shame.Visible {
		t.Errorf("halls = %+v", v.Halls)
	}
	if c.CurrentActiveTab() != domain.TabFame {
		t.Errorf("CurrentActiveTab() = %s", c.CurrentActiveTab())
	}
	if v.Top10URL != "/killstats/api/stats/top/10/month/6/year/2024/corporation/501/" {
		t.Errorf("Top10URL = %q", v.Top10URL)
	}
}

func TestRefreshPublishesLabelFirst(t *testing.T) {
	c := newController(t, &mockSource{})

	var (
		mu      sync.Mutex
		updates []controller.RegionUpdate
	)
	unsubscribe := c.Subscribe(func(u controller.RegionUpdate) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, u)
	})
	defer unsubscribe()

	if err := c.SelectMonth(context.Background(), 3); err != nil {
		t.Fatalf("SelectMonth() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 1+len(view.Regions) {
		t.Fatalf("got %d updates, want %d", len(updates), 1+len(view.Regions))
	}
	first := updates[0]
	if first.Region != controller.RegionPeriod || first.State.MonthLabel != "Killboard Month - March" {
		t.Errorf("first update = %s %q", first.Region, first.State.MonthLabel)
	}
	for _, r := range view.Regions {
		if !first.State.Regions[r].Loading {
			t.Errorf("region %s not loading in first update", r)
		}
	}
	if first.State.KillboardVisible || first.State.StatsVisible || first.State.HallVisible {
		t.Error("containers visible before any fetch completed")
	}
	for i := 1; i < len(updates); i++ {
		if updates[i].Version <= updates[i-1].Version {
			t.Errorf("versions out of order: %d after %d", updates[i].Version, updates[i-1].Version)
		}
	}
}

// A slow response for an older selection must not overwrite a newer one.
func TestLastRequestWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	src := &mockSource{
		statsFunc: func(ctx context.Context, p domain.Period) (domain.Stats, error) {
			if p.Month == 5 {
				close(started)
				<-release
			}
			return statsFor(p.Month), nil
		},
	}
	c := newController(t, src)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.SelectMonth(context.Background(), 5)
	}()
	<-started

	if err := c.SelectMonth(context.Background(), 6); err != nil {
		t.Fatalf("SelectMonth(6) error: %v", err)
	}
	close(release)
	<-done

	v := c.View()
	if v.Month != 6 {
		t.Errorf("Month = %d, want 6", v.Month)
	}
	if len(v.Stats) != 1 || v.Stats[0].Value != "6 Kills" {
		t.Errorf("stats = %+v, want the June payload", v.Stats)
	}
	if v.Loading() {
		t.Errorf("regions still loading: %+v", v.Regions)
	}
}

func TestFailureIsVisibleAndLocal(t *testing.T) {
	src := &mockSource{
		statsFunc: func(ctx context.Context, p domain.Period) (domain.Stats, error) {
			return nil, &api.APIError{StatusCode: http.StatusInternalServerError}
		},
		hallsFunc: func(ctx context.Context, p domain.Period) (*domain.Halls, error) {
			return &domain.Halls{Shame: []domain.HallEntry{{CharacterName: "Bob"}}}, nil
		},
	}
	c := newController(t, src)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	v := c.View()
	stats := v.Regions[view.RegionStats]
	if stats.Loading {
		t.Error("failed region still loading")
	}
	if stats.Error != "The killboard backend answered with HTTP 500." {
		t.Errorf("stats error = %q", stats.Error)
	}
	if v.StatsVisible {
		t.Error("stats container visible after failure")
	}
	if st := v.Regions[view.RegionHalls]; st.Error != "" || st.Loading {
		t.Errorf("halls region = %+v", st)
	}
	if !v.HallVisible || v.Halls.ActiveTab != domain.TabShame {
		t.Errorf("halls not rendered: %+v", v.Halls)
	}
}

func TestActiveTabPreserved(t *testing.T) {
	both := &domain.Halls{Shame: []domain.HallEntry{{CharacterName: "S"}}, Fame: []domain.HallEntry{{CharacterName: "F"}}}
	halls := both
	src := &mockSource{
		hallsFunc: func(ctx context.Context, p domain.Period) (*domain.Halls, error) { return halls, nil },
	}
	c := newController(t, src)
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if c.CurrentActiveTab() != domain.TabShame {
		t.Fatalf("initial tab = %s, want shame", c.CurrentActiveTab())
	}
	if !c.SetActiveTab(domain.TabFame) {
		t.Fatal("SetActiveTab(fame) rejected")
	}

	if err := c.SelectMonth(ctx, 5); err != nil {
		t.Fatalf("SelectMonth() error: %v", err)
	}
	if c.CurrentActiveTab() != domain.TabFame {
		t.Errorf("tab after refresh = %s, want fame", c.CurrentActiveTab())
	}

	halls = &domain.Halls{Shame: []domain.HallEntry{{CharacterName: "S"}}}
	if err := c.SelectMonth(ctx, 4); err != nil {
		t.Fatalf("SelectMonth() error: %v", err)
	}
	if c.CurrentActiveTab() != domain.TabShame {
		t.Errorf("tab without fame = %s, want shame", c.CurrentActiveTab())
	}
	if c.SetActiveTab(domain.TabFame) {
		t.Error("activated an empty fame tab")
	}

	halls = &domain.Halls{}
	if err := c.SelectMonth(ctx, 3); err != nil {
		t.Fatalf("SelectMonth() error: %v", err)
	}
	v := c.View()
	if v.Halls.ActiveTab != domain.TabNone || v.Halls.TabBarVisible || v.HallVisible {
		t.Errorf("empty halls = %+v", v.Halls)
	}
}

func TestBeginOrderDecidesWinner(t *testing.T) {
	src := &mockSource{
		statsFunc: func(ctx context.Context, p domain.Period) (domain.Stats, error) { return statsFor(p.Month), nil },
	}
	c := newController(t, src)
	ctx := context.Background()

	year, err := c.BeginYear(ctx, 2023)
	if err != nil {
		t.Fatalf("BeginYear() error: %v", err)
	}
	month, err := c.BeginMonth(ctx, 12)
	if err != nil {
		t.Fatalf("BeginMonth() error: %v", err)
	}
	if got := month.Period(); got != (domain.Period{Month: 12, Year: 2023}) {
		t.Errorf("month selection period = %+v", got)
	}

	month.Run()
	year.Run()

	v := c.View()
	if v.Month != 12 || v.Year != 2023 {
		t.Errorf("period = %d/%d, want 12/2023", v.Month, v.Year)
	}
	if len(v.Stats) != 1 || v.Stats[0].Value != "12 Kills" {
		t.Errorf("stats = %+v, want the December payload", v.Stats)
	}
	if v.Loading() {
		t.Errorf("regions still loading: %+v", v.Regions)
	}
}

func TestConcurrentSelectionsCompose(t *testing.T) {
	for i := 0; i < 20; i++ {
		c := newController(t, &mockSource{})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.SelectYear(context.Background(), 2023)
		}()
		go func() {
			defer wg.Done()
			c.SelectMonth(context.Background(), 12)
		}()
		wg.Wait()

		if got := c.Period(); got != (domain.Period{Month: 12, Year: 2023}) {
			t.Fatalf("run %d: Period() = %+v, want 12/2023", i, got)
		}
	}
}

func TestSelectYearKeepsMonth(t *testing.T) {
	var got []domain.Period
	var mu sync.Mutex
	src := &mockSource{
		statsFunc: func(ctx context.Context, p domain.Period) (domain.Stats, error) {
			mu.Lock()
			got = append(got, p)
			mu.Unlock()
			return nil, nil
		},
	}
	c := newController(t, src)

	if err := c.SelectYear(context.Background(), 2022); err != nil {
		t.Fatalf("SelectYear() error: %v", err)
	}
	want := domain.Period{Month: 6, Year: 2022}
	if c.Period() != want {
		t.Errorf("Period() = %+v, want %+v", c.Period(), want)
	}
	if len(got) != 1 || got[0] != want {
		t.Errorf("fetched %v, want [%v]", got, want)
	}
}

func TestInvalidPeriodRejected(t *testing.T) {
	c := newController(t, &mockSource{})
	before := c.View()

	if err := c.SelectMonth(context.Background(), 13); err == nil {
		t.Error("expected error for month 13")
	}
	if err := c.SelectYear(context.Background(), 1999); err == nil {
		t.Error("expected error for year 1999")
	}
	after := c.View()
	if after.Token != before.Token || after.Month != before.Month || after.Year != before.Year {
		t.Errorf("state changed by invalid selection: %+v", after)
	}
}

func TestLoadTable(t *testing.T) {
	src := &mockSource{
		killmailsFunc: func(ctx context.Context, p domain.Period, mode resources.Resource, q domain.TableQuery) (*domain.KillmailPage, error) {
			if mode != resources.Losses {
				t.Errorf("mode = %s, want losses", mode)
			}
			return &domain.KillmailPage{Draw: q.Draw, RecordsTotal: 40, RecordsFiltered: 40, TotalValue: 5}, nil
		},
	}
	c := newController(t, src)

	q := domain.TableQuery{Draw: 7, Start: 25, Length: 25, OrderColumn: domain.ColumnKillmail, OrderDir: domain.SortAsc}
	table, err := c.LoadTable(context.Background(), view.RegionLosses, q)
	if err != nil {
		t.Fatalf("LoadTable() error: %v", err)
	}
	if table.Draw != 7 || table.RecordsTotal != 40 || table.OrderColumn != domain.ColumnDate || table.OrderDir != "desc" {
		t.Errorf("table = %+v", table)
	}
	if got := c.View().Losses; got.RecordsTotal != 40 {
		t.Errorf("view not updated: %+v", got)
	}

	if _, err := c.LoadTable(context.Background(), view.RegionHalls, q); err == nil {
		t.Error("expected error for non-table region")
	}
}

func TestLoadTableStaleAfterRefresh(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	src := &mockSource{
		killmailsFunc: func(ctx context.Context, p domain.Period, mode resources.Resource, q domain.TableQuery) (*domain.KillmailPage, error) {
			if p.Month == 6 && q.Draw == 9 {
				close(started)
				<-release
				return &domain.KillmailPage{Draw: q.Draw, RecordsTotal: 999}, nil
			}
			return &domain.KillmailPage{Draw: q.Draw}, nil
		},
	}
	c := newController(t, src)

	errc := make(chan error, 1)
	go func() {
		q := domain.DefaultTableQuery()
		q.Draw = 9
		_, err := c.LoadTable(context.Background(), view.RegionKills, q)
		errc <- err
	}()
	<-started

	if err := c.SelectMonth(context.Background(), 2); err != nil {
		t.Fatalf("SelectMonth() error: %v", err)
	}
	close(release)

	if err := <-errc; !errors.Is(err, controller.ErrStale) {
		t.Errorf("LoadTable() error = %v, want ErrStale", err)
	}
	v := c.View()
	if v.Kills.RecordsTotal == 999 {
		t.Error("stale page was applied")
	}
	if v.Month != 2 || v.Regions[view.RegionKills].Loading {
		t.Errorf("kills region = %+v for month %d", v.Regions[view.RegionKills], v.Month)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&api.APIError{StatusCode: 404}, "The killboard backend answered with HTTP 404."},
		{api.ErrMalformedPayload, "The killboard backend sent data that could not be read."},
		{context.DeadlineExceeded, "The request was cancelled or timed out."},
		{errors.New("dial tcp: refused"), "The killboard backend could not be reached."},
	}
	for _, tt := range tests {
		if got := controller.ErrorMessage(tt.err); got != tt.want {
			t.Errorf("ErrorMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
