package domain

import (
	"fmt"
	"time"

	"killstats/internal/constants"
)

// FirstYear is the first year the game produced killmails.
const FirstYear = 2003

type Period struct {
	Month int
	Year  int
}

func CurrentPeriod(now time.Time) Period {
	now = now.UTC()
	return Period{Month: int(now.Month()), Year: now.Year()}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("invalid month %d", p.Month)
	}
	if p.Year < FirstYear {
		return fmt.Errorf("invalid year %d", p.Year)
	}
	return nil
}

func (p Period) IsCurrent(now time.Time) bool {
	return p == CurrentPeriod(now)
}

func (p Period) String() string {
	return fmt.Sprintf("%d-%02d", p.Year, p.Month)
}

type EntityKind string

const (
	Corporation EntityKind = "corporation"
	Alliance    EntityKind = "alliance"
)

func ParseEntityKind(s string) (EntityKind, error) {
	switch EntityKind(s) {
	case Corporation, Alliance:
		return EntityKind(s), nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

type Entity struct {
	Kind EntityKind
	ID   int64
}

func (e Entity) Validate() error {
	if _, err := ParseEntityKind(string(e.Kind)); err != nil {
		return err
	}
	if e.ID <= 0 {
		return fmt.Errorf("invalid %s id %d", e.Kind, e.ID)
	}
	return nil
}

func (e Entity) String() string {
	return fmt.Sprintf("%s/%d", e.Kind, e.ID)
}

// AllianceID returns the entity id when the entity is an alliance, zero otherwise.
func (e Entity) AllianceID() int64 {
	if e.Kind == Alliance {
		return e.ID
	}
	return 0
}

// CorporationID returns the entity id when the entity is a corporation, zero otherwise.
func (e Entity) CorporationID() int64 {
	if e.Kind == Corporation {
		return e.ID
	}
	return 0
}

type ActiveTab string

const (
	TabNone  ActiveTab = "none"
	TabShame ActiveTab = "shame"
	TabFame  ActiveTab = "fame"
)

func ParseActiveTab(s string) (ActiveTab, error) {
	switch ActiveTab(s) {
	case TabNone, TabShame, TabFame:
		return ActiveTab(s), nil
	case "":
		return TabNone, nil
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

type HallEntry struct {
	CharacterName string    `json:"character_name"`
	CharacterID   int64     `json:"character_id"`
	CorporationID int64     `json:"corporation_id"`
	AllianceID    int64     `json:"alliance_id"`
	KillmailID    int64     `json:"killmail_id"`
	Ship          int64     `json:"ship"`
	ShipName      string    `json:"ship_name"`
	TotalValue    float64   `json:"totalValue"`
	Portrait      string    `json:"portrait"`
	ZkbLink       string    `json:"zkb_link"`
	Hash          string    `json:"hash"`
	Date          time.Time `json:"date"`
}

type Halls struct {
	Shame []HallEntry `json:"shame"`
	Fame  []HallEntry `json:"fame"`
}

// StatRecord carries the union of the fields any stat category can send.
// Which fields are populated depends on the category key it was sent under.
type StatRecord struct {
	CharacterID   int64  `json:"character_id"`
	CharacterName string `json:"character__name"`
	AlltimeKiller int64  `json:"alltime_killer"`
	TopKiller     int64  `json:"top_killer"`

	VictimID      int64  `json:"victim_id"`
	VictimName    string `json:"victim__name"`
	AlltimeVictim int64  `json:"alltime_victim"`
	TopVictim     int64  `json:"top_victim"`

	ShipID         int64  `json:"ship__id"`
	ShipName       string `json:"ship__name"`
	Count          int64  `json:"count"`
	VictimShipID   int64  `json:"victim_ship_id"`
	VictimShipName string `json:"victim_ship__name"`
	TopVictimShip  int64  `json:"top_victim_ship"`

	KillmailID           int64   `json:"killmail_id"`
	KillVictimTotalValue float64 `json:"killmail__victim_total_value"`
	KillVictimShipID     int64   `json:"killmail__victim_ship__id"`
	KillVictimShipName   string  `json:"killmail__victim_ship__name"`
	VictimTotalValue     float64 `json:"victim_total_value"`
	LossVictimShipID     int64   `json:"victim_ship__id"`

	AllianceID    int64 `json:"alliance_id"`
	CorporationID int64 `json:"corporation_id"`
}

type IDName struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type KillmailRow struct {
	KillmailID          int64     `json:"killmail_id"`
	KillmailDate        time.Time `json:"killmail_date"`
	Victim              IDName    `json:"victim"`
	VictimShip          IDName    `json:"victim_ship"`
	VictimCorporationID int64     `json:"victim_corporation_id"`
	VictimAllianceID    int64     `json:"victim_alliance_id"`
	Hash                string    `json:"hash"`
	VictimTotalValue    float64   `json:"victim_total_value"`
}

// Stats maps a stat category key to its record. A nil or missing record
// means the backend had nothing for that category.
type Stats map[string]*StatRecord

type KillmailPage struct {
	Draw            int           `json:"draw"`
	RecordsTotal    int           `json:"recordsTotal"`
	RecordsFiltered int           `json:"recordsFiltered"`
	Data            []KillmailRow `json:"data"`
	TotalValue      float64       `json:"-"`
}

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Killmail table columns, in display order.
const (
	ColumnKillmail = iota
	ColumnShip
	ColumnVictimImage
	ColumnVictim
	ColumnValue
	ColumnDate
	columnCount
)

// TableQuery is one server-side page request for the kills or losses table.
type TableQuery struct {
	Draw        int
	Start       int
	Length      int
	Search      string
	OrderColumn int
	OrderDir    SortDir
}

func DefaultTableQuery() TableQuery {
	return TableQuery{Draw: 1, Length: constants.DefaultPageLength, OrderColumn: ColumnDate, OrderDir: SortDesc}
}

// ColumnSortable reports whether a table column may be ordered by.
// The killmail icon and victim image columns never are.
func ColumnSortable(col int) bool {
	return col >= 0 && col < columnCount && col != ColumnKillmail && col != ColumnVictimImage
}

// Normalize clamps paging to sane bounds and replaces an order on a
// non-sortable column with the default order.
func (q TableQuery) Normalize(maxLength int) TableQuery {
	def := DefaultTableQuery()
	if q.Draw < 1 {
		q.Draw = def.Draw
	}
	if q.Start < 0 {
		q.Start = 0
	}
	if q.Length <= 0 {
		q.Length = def.Length
	}
	if maxLength > 0 && q.Length > maxLength {
		q.Length = maxLength
	}
	if !ColumnSortable(q.OrderColumn) {
		q.OrderColumn, q.OrderDir = def.OrderColumn, def.OrderDir
	}
	if q.OrderDir != SortAsc && q.OrderDir != SortDesc {
		q.OrderDir = SortDesc
	}
	return q
}
