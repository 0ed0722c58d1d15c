package view_test

import (
	"testing"

	"killstats/internal/domain"
	"killstats/internal/view"

	"github.com/google/go-cmp/cmp"
)

func TestRenderStats(t *testing.T) {
	corp := domain.Entity{Kind: domain.Corporation, ID: 501}
	stats := domain.Stats{
		"top_killer":   {CharacterID: 90, CharacterName: "Alice", TopKiller: 12},
		"top_ship":     {ShipID: 587, ShipName: "Rifter", Count: 30},
		"highest_kill": {KillmailID: 77, KillVictimShipID: 24690, KillVictimShipName: "Vindicator", KillVictimTotalValue: 1234567},
		"top_victim":   {VictimID: 501, VictimName: "Corp Itself", TopVictim: 3},
		"highest_loss": nil,
		"mystery_stat": {Count: 9},
	}

	got := view.RenderStats(corp, stats)
	want := []view.StatCard{
		{Key: "top_killer", Title: "Top Killer", Name: "Alice", Type: view.CountValue, Value: "12 Kills",
			Image: view.Image{URL: view.CharacterPortrait(90), Link: "https://zkillboard.com/character/90/"}},
		{Key: "top_ship", Title: "Top Ship", Name: "Rifter", Type: view.CountValue, Value: "30 Kills",
			Image: view.Image{URL: view.ShipRender(587)}},
		{Key: "highest_kill", Title: "Highest Kill", Name: "Vindicator", Type: view.ISKValue, Value: "1,234,567 ISK",
			Image: view.Image{URL: view.ShipRender(24690), Link: view.KillmailLink(77)}},
		{Key: "top_victim", Title: "Top Victim", Name: "Corp Itself", Type: view.CountValue, Loss: true, Value: "3 Deaths",
			Image: view.Image{URL: view.CorporationLogo(501), Link: "https://zkillboard.com/corporation/501/"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RenderStats() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderStatsMissingCategory(t *testing.T) {
	got := view.RenderStats(domain.Entity{Kind: domain.Alliance, ID: 1}, domain.Stats{
		"highest_kill": {KillmailID: 5, KillVictimTotalValue: 10},
	})
	for _, c := range got {
		if c.Key == "highest_loss" {
			t.Fatal("highest_loss card rendered without data")
		}
	}
	if len(got) != 1 {
		t.Errorf("rendered %d cards, want 1", len(got))
	}
}

func TestRenderStatsEmpty(t *testing.T) {
	if got := view.RenderStats(domain.Entity{Kind: domain.Alliance, ID: 1}, nil); len(got) != 0 {
		t.Errorf("RenderStats(nil) = %v", got)
	}
}

func TestRenderStatsShipPlaceholder(t *testing.T) {
	got := view.RenderStats(domain.Entity{Kind: domain.Alliance, ID: 1}, domain.Stats{
		"top_victim_ship": {TopVictimShip: 2},
	})
	if len(got) != 1 || got[0].Image.URL != view.PlaceholderImage || got[0].Value != "2 Deaths" {
		t.Errorf("unexpected cards %+v", got)
	}
}

func TestLookupStatCategory(t *testing.T) {
	c, ok := view.LookupStatCategory("highest_loss")
	if !ok || c.Title != "Highest Loss" || !c.Loss || c.Type != view.ISKValue {
		t.Errorf("LookupStatCategory(highest_loss) = %+v, %v", c, ok)
	}
	if _, ok := view.LookupStatCategory("nope"); ok {
		t.Error("found unknown category")
	}
}
