package api

import (
	"fmt"
	"net/url"
	"strconv"

	"killstats/internal/domain"

	jsoniter "github.com/json-iterator/go"
)

type statsEnvelope struct {
	Stats domain.Stats `json:"stats"`
}

// DecodeStats decodes the keyed stats payload {"stats": {"top_ship": {...}, ...}}.
func DecodeStats(body []byte) (domain.Stats, error) {
	var env statsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: stats: %v", ErrMalformedPayload, err)
	}
	if env.Stats == nil {
		return nil, fmt.Errorf("%w: stats: missing stats object", ErrMalformedPayload)
	}
	return env.Stats, nil
}

// DecodeHalls decodes [{"shame": [...], "fame": [...]}].
func DecodeHalls(body []byte) (*domain.Halls, error) {
	var halls []domain.Halls
	if err := json.Unmarshal(body, &halls); err != nil {
		return nil, fmt.Errorf("%w: halls: %v", ErrMalformedPayload, err)
	}
	if len(halls) == 0 {
		return nil, fmt.Errorf("%w: halls: empty envelope", ErrMalformedPayload)
	}
	return &halls[0], nil
}

type killmailPageEnvelope struct {
	Draw            int                   `json:"draw"`
	RecordsTotal    int                   `json:"recordsTotal"`
	RecordsFiltered int                   `json:"recordsFiltered"`
	Data            *[]domain.KillmailRow `json:"data"`
	TotalValue      jsoniter.RawMessage   `json:"totalvalue"`
}

// DecodeKillmailPage decodes one server-side table page. The backend sends
// totalvalue either as a number, as a one element array or as null.
func DecodeKillmailPage(body []byte) (*domain.KillmailPage, error) {
	var env killmailPageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: killmails: %v", ErrMalformedPayload, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: killmails: missing data", ErrMalformedPayload)
	}
	total, err := decodeTotalValue(env.TotalValue)
	if err != nil {
		return nil, err
	}
	return &domain.KillmailPage{
		Draw:            env.Draw,
		RecordsTotal:    env.RecordsTotal,
		RecordsFiltered: env.RecordsFiltered,
		Data:            *env.Data,
		TotalValue:      total,
	}, nil
}

func decodeTotalValue(raw jsoniter.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var single *float64
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == nil {
			return 0, nil
		}
		return *single, nil
	}
	var list []*float64
	if err := json.Unmarshal(raw, &list); err != nil {
		return 0, fmt.Errorf("%w: totalvalue: %v", ErrMalformedPayload, err)
	}
	if len(list) == 0 || list[0] == nil {
		return 0, nil
	}
	return *list[0], nil
}

// tableValues encodes q as the DataTables server-side parameters the
// backend understands.
func tableValues(q domain.TableQuery) url.Values {
	return url.Values{
		"draw":             {strconv.Itoa(q.Draw)},
		"start":            {strconv.Itoa(q.Start)},
		"length":           {strconv.Itoa(q.Length)},
		"search[value]":    {q.Search},
		"order[0][column]": {strconv.Itoa(q.OrderColumn)},
		"order[0][dir]":    {string(q.OrderDir)},
	}
}
