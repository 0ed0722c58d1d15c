package view

import (
	"sort"
	"strings"

	"killstats/internal/domain"
)

type TableRow struct {
	KillmailID  int64  `json:"killmail_id"`
	KillmailURL string `json:"killmail_url"`
	ShipIcon    string `json:"ship_icon"`
	ShipName    string `json:"ship_name"`
	Victim      Image  `json:"victim_image"`
	VictimName  string `json:"victim_name"`
	Value       string `json:"value"`
	Date        string `json:"date"`
}

type TableView struct {
	Draw            int        `json:"draw"`
	RecordsTotal    int        `json:"recordsTotal"`
	RecordsFiltered int        `json:"recordsFiltered"`
	TotalValue      string     `json:"total_value"`
	OrderColumn     int        `json:"order_column"`
	OrderDir        string     `json:"order_dir"`
	Rows            []TableRow `json:"data"`
}

// RenderTable renders one server-side page. Rows are shown in the effective
// order of q even if the backend returned them unsorted.
func RenderTable(page *domain.KillmailPage, q domain.TableQuery) TableView {
	q = q.Normalize(0)
	v := TableView{
		Draw:        q.Draw,
		OrderColumn: q.OrderColumn,
		OrderDir:    string(q.OrderDir),
		TotalValue:  FormatISK(0),
		Rows:        []TableRow{},
	}
	if page == nil {
		return v
	}

	v.RecordsTotal = page.RecordsTotal
	v.RecordsFiltered = page.RecordsFiltered
	v.TotalValue = FormatISK(page.TotalValue)

	rows := SortRows(page.Data, q.OrderColumn, q.OrderDir)
	v.Rows = make([]TableRow, 0, len(rows))
	for _, r := range rows {
		v.Rows = append(v.Rows, TableRow{
			KillmailID:  r.KillmailID,
			KillmailURL: KillmailLink(r.KillmailID),
			ShipIcon:    TypeIcon(r.VictimShip.ID),
			ShipName:    r.VictimShip.Name,
			Victim:      EntityImage(r.Victim.ID, r.VictimAllianceID, r.VictimCorporationID),
			VictimName:  r.Victim.Name,
			Value:       FormatISK(r.VictimTotalValue),
			Date:        FormatDate(r.KillmailDate),
		})
	}
	return v
}

// SortRows returns a stably sorted copy of rows. Non-sortable columns sort
// by killmail date, newest first.
func SortRows(rows []domain.KillmailRow, col int, dir domain.SortDir) []domain.KillmailRow {
	if !domain.ColumnSortable(col) {
		col, dir = domain.ColumnDate, domain.SortDesc
	}
	out := make([]domain.KillmailRow, len(rows))
	copy(out, rows)

	less := rowLess(col)
	sort.SliceStable(out, func(i, j int) bool {
		if dir == domain.SortAsc {
			return less(out[i], out[j])
		}
		return less(out[j], out[i])
	})
	return out
}

func rowLess(col int) func(a, b domain.KillmailRow) bool {
	switch col {
	case domain.ColumnShip:
		return func(a, b domain.KillmailRow) bool {
			return strings.ToLower(a.VictimShip.Name) < strings.ToLower(b.VictimShip.Name)
		}
	case domain.ColumnVictim:
		return func(a, b domain.KillmailRow) bool {
			return strings.ToLower(a.Victim.Name) < strings.ToLower(b.Victim.Name)
		}
	case domain.ColumnValue:
		return func(a, b domain.KillmailRow) bool { return a.VictimTotalValue < b.VictimTotalValue }
	}
	return func(a, b domain.KillmailRow) bool { return a.KillmailDate.Before(b.KillmailDate) }
}
