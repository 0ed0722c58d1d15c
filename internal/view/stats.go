package view

import "killstats/internal/domain"

type ValueType string

const (
	CountValue ValueType = "count"
	ISKValue   ValueType = "value"
)

type subjectKind int

const (
	subjectCharacter subjectKind = iota
	subjectShip
	subjectKillmail
)

// StatCategory describes how one keyed stat record is turned into a card.
type StatCategory struct {
	Key   string
	Title string
	Type  ValueType
	Loss  bool

	subject subjectKind
	fields  func(r *domain.StatRecord) statFields
}

type statFields struct {
	id         int64
	name       string
	count      int64
	value      float64
	killmailID int64
}

// StatCategories lists the known stat categories in display order.
var StatCategories = []StatCategory{
	{Key: "alltime_killer", Title: "All-Time Killer", Type: CountValue, subject: subjectCharacter,
		fields: func(r *domain.StatRecord) statFields {
			return statFields{id: r.CharacterID, name: r.CharacterName, count: r.AlltimeKiller}
		}},
	{Key: "top_killer", Title: "Top Killer", Type: CountValue, subject: subjectCharacter,
		fields: func(r *domain.StatRecord) statFields {
			return statFields{id: r.CharacterID, name: r.CharacterName, count: r.TopKiller}
		}},
	{Key: "top_ship", Title: "Top Ship", Type: CountValue, subject: subjectShip,
		fields: func(r *domain.StatRecord) statFields {
			return statFields{id: r.ShipID, name: r.ShipName, count: r.Count}
		}},
	{Key: "highest_kill", Title: "Highest Kill", Type: ISKValue, subject: subjectKillmail,
		fields: func(r *domain.StatRecord) statFields {
			return statFields{id: r.KillVictimShipID, name: r.KillVictimShipName, value: r.KillVictimTotalValue, killmailID: r.KillmailID}
		}},
	{Key: "alltime_victim", Title: "All-Time Victim", Type: CountValue, Loss: true, subject: subjectCharacter,
		fields: func(r *domain.StatRecord) statFields {
			return statFields{id: r.VictimID, name: r.VictimName, count: r.AlltimeVictim}
		}},
	{Key: "top_victim", Title: "Top Victim", Type: CountValue, Loss: true, subject: subjectCharacter,
		fields: func(r *domain.StatRecord) statFields {
			return statFields{id: r.VictimID, name: r.VictimName, count: r.TopVictim}
		}},
	{Key: "top_victim_ship", Title: "Top Victim Ship", Type: CountValue, Loss: true, subject: subjectShip,
		fields: func(r *domain.StatRecord) statFields {
			return statFields{id: r.VictimShipID, name: r.VictimShipName, count: r.TopVictimShip}
		}},
	{Key: "highest_loss", Title: "Highest Loss", Type: ISKValue, Loss: true, subject: subjectKillmail,
		fields: func(r *domain.StatRecord) statFields {
			return statFields{id: r.LossVictimShipID, name: r.VictimShipName, value: r.VictimTotalValue, killmailID: r.KillmailID}
		}},
}

func LookupStatCategory(key string) (StatCategory, bool) {
	for _, c := range StatCategories {
		if c.Key == key {
			return c, true
		}
	}
	return StatCategory{}, false
}

type StatCard struct {
	Key   string    `json:"key"`
	Title string    `json:"title"`
	Name  string    `json:"name"`
	Image Image     `json:"image"`
	Type  ValueType `json:"type"`
	Loss  bool      `json:"loss"`
	Value string    `json:"value"`
}

// RenderStats renders one card per known category present in stats, in
// category order. Absent or nil categories produce no card; unknown keys
// are ignored.
func RenderStats(entity domain.Entity, stats domain.Stats) []StatCard {
	cards := make([]StatCard, 0, len(StatCategories))
	for _, c := range StatCategories {
		r := stats[c.Key]
		if r == nil {
			continue
		}
		cards = append(cards, c.render(entity, r))
	}
	return cards
}

func (c StatCategory) render(entity domain.Entity, r *domain.StatRecord) StatCard {
	f := c.fields(r)
	card := StatCard{
		Key:   c.Key,
		Title: c.Title,
		Name:  f.name,
		Type:  c.Type,
		Loss:  c.Loss,
	}

	switch c.subject {
	case subjectCharacter:
		allianceID, corporationID := r.AllianceID, r.CorporationID
		if allianceID == 0 {
			allianceID = entity.AllianceID()
		}
		if corporationID == 0 {
			corporationID = entity.CorporationID()
		}
		card.Image = EntityImage(f.id, allianceID, corporationID)
	case subjectShip:
		card.Image = Image{URL: ShipRender(f.id)}
	case subjectKillmail:
		card.Image = Image{URL: ShipRender(f.id)}
		if f.killmailID != 0 {
			card.Image.Link = KillmailLink(f.killmailID)
		}
	}

	if c.Type == ISKValue {
		card.Value = FormatISK(f.value)
	} else {
		card.Value = FormatCount(f.count, c.Loss)
	}
	return card
}
