package view

import (
	"killstats/internal/domain"
)

// Region is an independently refreshed part of the dashboard.
type Region string

const (
	RegionKills  Region = "kills"
	RegionLosses Region = "losses"
	RegionHalls  Region = "halls"
	RegionStats  Region = "stats"
)

var Regions = []Region{RegionKills, RegionLosses, RegionHalls, RegionStats}

type RegionStatus struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// State is the whole dashboard view model for one viewer.
type State struct {
	Entity     domain.Entity `json:"-"`
	EntityKind string        `json:"entity_kind"`
	EntityID   int64         `json:"entity_id"`
	Month      int           `json:"month"`
	Year       int           `json:"year"`
	MonthLabel string        `json:"month_label"`
	Token      uint64        `json:"token"`

	KillboardVisible bool `json:"killboard_visible"`
	HallVisible      bool `json:"hall_visible"`
	StatsVisible     bool `json:"stats_visible"`

	Regions map[Region]RegionStatus `json:"regions"`

	Kills    TableView  `json:"kills"`
	Losses   TableView  `json:"losses"`
	Halls    HallsView  `json:"halls"`
	Stats    []StatCard `json:"stats"`
	Top10URL string     `json:"top10_url"`
}

func NewState(entity domain.Entity, period domain.Period) State {
	s := State{
		Entity:     entity,
		EntityKind: string(entity.Kind),
		EntityID:   entity.ID,
		Regions:    make(map[Region]RegionStatus, len(Regions)),
		Halls:      HallsView{ActiveTab: domain.TabNone},
		Kills:      RenderTable(nil, domain.DefaultTableQuery()),
		Losses:     RenderTable(nil, domain.DefaultTableQuery()),
	}
	s.SetPeriod(period)
	return s
}

func (s State) Period() domain.Period {
	return domain.Period{Month: s.Month, Year: s.Year}
}

// SetPeriod switches the period and updates the month label.
func (s *State) SetPeriod(p domain.Period) {
	s.Month, s.Year = p.Month, p.Year
	s.MonthLabel = MonthLabel(p)
}

// Loading reports whether any region is still waiting on its fetch.
func (s State) Loading() bool {
	for _, st := range s.Regions {
		if st.Loading {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares nothing mutable with s.
func (s State) Clone() State {
	c := s
	c.Regions = make(map[Region]RegionStatus, len(s.Regions))
	for k, v := range s.Regions {
		c.Regions[k] = v
	}
	c.Kills = s.Kills.clone()
	c.Losses = s.Losses.clone()
	c.Halls = s.Halls.clone()
	c.Stats = append(make([]StatCard, 0, len(s.Stats)), s.Stats...)
	return c
}

func (t TableView) clone() TableView {
	t.Rows = append(make([]TableRow, 0, len(t.Rows)), t.Rows...)
	return t
}

func (h HallsView) clone() HallsView {
	h.Shame.Cards = append([]HallCard(nil), h.Shame.Cards...)
	h.Fame.Cards = append([]HallCard(nil), h.Fame.Cards...)
	return h
}
