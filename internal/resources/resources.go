// Package resources builds the backend endpoint URLs for an entity and period.
// Every consumer goes through this package so URL shapes stay in one place.
package resources

import (
	"fmt"
	"strings"

	"killstats/internal/domain"
)

type Resource string

const (
	Kills    Resource = "kills"
	Losses   Resource = "losses"
	Halls    Resource = "halls"
	Stats    Resource = "stats"
	StatsAll Resource = "stats_all"
	Top10    Resource = "top10"
)

// All lists every resource of a ResourceSet in a fixed order.
var All = []Resource{Kills, Losses, Halls, Stats, StatsAll, Top10}

type ResourceSet struct {
	Kills    string
	Losses   string
	Halls    string
	Stats    string
	StatsAll string
	Top10    string
}

func (s ResourceSet) URL(r Resource) string {
	switch r {
	case Kills:
		return s.Kills
	case Losses:
		return s.Losses
	case Halls:
		return s.Halls
	case Stats:
		return s.Stats
	case StatsAll:
		return s.StatsAll
	case Top10:
		return s.Top10
	}
	return ""
}

// Build derives the full resource set for entity and period under prefix
// (e.g. "/killstats/api"). Inputs are expected to be validated by the caller.
func Build(prefix string, entity domain.Entity, period domain.Period) ResourceSet {
	return ResourceSet{
		Kills:    Killmail(prefix, entity, period, Kills),
		Losses:   Killmail(prefix, entity, period, Losses),
		Halls:    scoped(prefix, "halls", entity, period),
		Stats:    scoped(prefix, "stats", entity, period),
		StatsAll: scoped(prefix, "stats/all", entity, period),
		Top10:    scoped(prefix, "stats/top/10", entity, period),
	}
}

// Killmail returns the table endpoint for kills or losses.
func Killmail(prefix string, entity domain.Entity, period domain.Period, mode Resource) string {
	return scoped(prefix, "killmail", entity, period) + string(mode) + "/"
}

// TopCategory returns the per-category top list endpoint used by modals.
func TopCategory(prefix, category string, entity domain.Entity, period domain.Period) string {
	return scoped(prefix, "stats/top/"+category, entity, period)
}

func scoped(prefix, kind string, entity domain.Entity, period domain.Period) string {
	return fmt.Sprintf("%s/%s/month/%d/year/%d/%s/%d/",
		strings.TrimRight(prefix, "/"), kind, period.Month, period.Year, entity.Kind, entity.ID)
}
