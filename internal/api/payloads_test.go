package api_test

import (
	"errors"
	"testing"

	"killstats/internal/api"
)

func TestDecodeKillmailPageTotalValue(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"number", `{"data": [], "totalvalue": 42.5}`, 42.5},
		{"array", `{"data": [], "totalvalue": [1234567]}`, 1234567},
		{"empty array", `{"data": [], "totalvalue": []}`, 0},
		{"null", `{"data": [], "totalvalue": null}`, 0},
		{"array of null", `{"data": [], "totalvalue": [null]}`, 0},
		{"missing", `{"data": []}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := api.DecodeKillmailPage([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if page.TotalValue != tt.want {
				t.Errorf("TotalValue = %v, want %v", page.TotalValue, tt.want)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name   string
		decode func([]byte) error
		body   string
	}{
		{"killmails without data", func(b []byte) error { _, err := api.DecodeKillmailPage(b); return err }, `{"draw": 1}`},
		{"killmails bad totalvalue", func(b []byte) error { _, err := api.DecodeKillmailPage(b); return err }, `{"data": [], "totalvalue": "lots"}`},
		{"halls empty envelope", func(b []byte) error { _, err := api.DecodeHalls(b); return err }, `[]`},
		{"halls object", func(b []byte) error { _, err := api.DecodeHalls(b); return err }, `{"shame": []}`},
		{"stats without envelope", func(b []byte) error { _, err := api.DecodeStats(b); return err }, `{"top_ship": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.decode([]byte(tt.body)); !errors.Is(err, api.ErrMalformedPayload) {
				t.Errorf("expected ErrMalformedPayload, got %v", err)
			}
		})
	}
}

func TestDecodeHalls(t *testing.T) {
	halls, err := api.DecodeHalls([]byte(`[{"shame": [], "fame": [
		{"character_name": "Alice", "character_id": 90, "killmail_id": 7, "ship": 587,
		 "ship_name": "Rifter", "totalValue": 250000000, "portrait": "p.png", "zkb_link": "z"}
	]}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(halls.Shame) != 0 || len(halls.Fame) != 1 {
		t.Fatalf("unexpected halls %+v", halls)
	}
	if f := halls.Fame[0]; f.CharacterName != "Alice" || f.TotalValue != 250000000 || f.ZkbLink != "z" {
		t.Errorf("unexpected fame entry %+v", f)
	}
}
