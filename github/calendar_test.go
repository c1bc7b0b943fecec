package github

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/contribuart/types"
)

func TestCalendar_Fetch(t *testing.T) {
	var gotQuery struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"user":{"contributionsCollection":{"contributionCalendar":{
			"totalContributions": 7,
			"weeks": [
				{"contributionDays": [
					{"date":"2024-01-01","contributionCount":0,"contributionLevel":"NONE"},
					{"date":"2024-01-02","contributionCount":7,"contributionLevel":"FOURTH_QUARTILE"}
				]}
			]
		}}}}}`))
	}))
	defer srv.Close()

	cal := NewCalendarWithClient(srv.Client(), srv.URL)
	got, err := cal.Fetch(t.Context(), "octocat", 2024)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if !strings.Contains(gotQuery.Query, "contributionsCollection(from: $from, to: $to)") {
		t.Errorf("query = %s", gotQuery.Query)
	}
	if gotQuery.Variables["login"] != "octocat" || gotQuery.Variables["from"] != "2024-01-01T00:00:00Z" || gotQuery.Variables["to"] != "2024-12-31T23:59:59Z" {
		t.Errorf("variables = %v", gotQuery.Variables)
	}

	if got.TotalContributions != 7 || len(got.Days()) != 2 {
		t.Fatalf("calendar = %+v", got)
	}
	if got.CountOn("2024-01-02") != 7 {
		t.Errorf("CountOn = %d", got.CountOn("2024-01-02"))
	}
	if got.Days()[1].ContributionLevel != types.LevelFourthQuartile {
		t.Errorf("level = %s", got.Days()[1].ContributionLevel)
	}
}

func TestValidYear(t *testing.T) {
	now := time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC)
	tests := []struct {
		year int
		want bool
	}{
		{2007, false},
		{FirstCalendarYear, true},
		{2026, true},
		{2027, true},
		{2028, false},
	}
	for _, tt := range tests {
		if got := ValidYear(tt.year, now); got != tt.want {
			t.Errorf("ValidYear(%d) = %v, want %v", tt.year, got, tt.want)
		}
	}
}

func TestYearRange(t *testing.T) {
	from, to := YearRange(2024)
	if from.Format(time.RFC3339) != "2024-01-01T00:00:00Z" {
		t.Errorf("from = %s", from)
	}
	if to.Format(time.RFC3339) != "2024-12-31T23:59:59Z" {
		t.Errorf("to = %s", to)
	}
}
