package view

import "killstats/internal/domain"

type HallCard struct {
	CharacterName string `json:"character_name"`
	CharacterID   int64  `json:"character_id"`
	Portrait      Image  `json:"portrait"`
	KillmailID    int64  `json:"killmail_id"`
	KillmailURL   string `json:"killmail_url"`
	ShipImage     string `json:"ship_image"`
	ShipName      string `json:"ship_name"`
	Value         string `json:"value"`
}

type HallSection struct {
	Visible bool       `json:"visible"`
	Active  bool       `json:"active"`
	Cards   []HallCard `json:"cards"`
}

type HallsView struct {
	Visible       bool             `json:"visible"`
	TabBarVisible bool             `json:"tab_bar_visible"`
	ActiveTab     domain.ActiveTab `json:"active_tab"`
	Shame         HallSection      `json:"shame"`
	Fame          HallSection      `json:"fame"`
}

// RenderHalls builds both hall sections. A section is visible exactly when it
// has entries, and has one card per entry in input order. The active tab is
// prev when that section still has entries, else shame, else fame, else none.
// A nil halls renders both sections as absent.
func RenderHalls(prev domain.ActiveTab, halls *domain.Halls) HallsView {
	var shame, fame []domain.HallEntry
	if halls != nil {
		shame, fame = halls.Shame, halls.Fame
	}

	v := HallsView{
		Shame: renderSection(shame),
		Fame:  renderSection(fame),
	}
	v.ActiveTab = pickTab(prev, v.Shame.Visible, v.Fame.Visible)
	v.Shame.Active = v.ActiveTab == domain.TabShame
	v.Fame.Active = v.ActiveTab == domain.TabFame
	v.TabBarVisible = v.ActiveTab != domain.TabNone
	v.Visible = v.TabBarVisible
	return v
}

// Activate switches the active tab, provided the target section has content.
func (v HallsView) Activate(tab domain.ActiveTab) (HallsView, bool) {
	switch {
	case tab == domain.TabShame && v.Shame.Visible:
	case tab == domain.TabFame && v.Fame.Visible:
	default:
		return v, false
	}
	v.ActiveTab = tab
	v.Shame.Active = tab == domain.TabShame
	v.Fame.Active = tab == domain.TabFame
	return v, true
}

func pickTab(prev domain.ActiveTab, shame, fame bool) domain.ActiveTab {
	switch {
	case prev == domain.TabShame && shame:
		return domain.TabShame
	case prev == domain.TabFame && fame:
		return domain.TabFame
	case shame:
		return domain.TabShame
	case fame:
		return domain.TabFame
	}
	return domain.TabNone
}

func renderSection(entries []domain.HallEntry) HallSection {
	if len(entries) == 0 {
		return HallSection{}
	}
	cards := make([]HallCard, 0, len(entries))
	for _, e := range entries {
		cards = append(cards, renderHallCard(e))
	}
	return HallSection{Visible: true, Cards: cards}
}

func renderHallCard(e domain.HallEntry) HallCard {
	portrait := EntityImage(e.CharacterID, e.AllianceID, e.CorporationID)
	if e.Portrait != "" {
		portrait.URL = e.Portrait
	}
	if e.ZkbLink != "" {
		portrait.Link = e.ZkbLink
	}
	return HallCard{
		CharacterName: e.CharacterName,
		CharacterID:   e.CharacterID,
		Portrait:      portrait,
		KillmailID:    e.KillmailID,
		KillmailURL:   KillmailLink(e.KillmailID),
		ShipImage:     ShipRender(e.Ship),
		ShipName:      e.ShipName,
		Value:         FormatISK(e.TotalValue),
	}
}
