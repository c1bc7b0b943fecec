package types //nolint:revive // types is a valid package name

import (
	"errors"
	"testing"
)

func TestPaintRequest_Validate(t *testing.T) {
	cell := PaintCell{Date: "2024-01-01", Intensity: 4}

	tests := []struct {
		name    string
		req     PaintRequest
		wantErr bool
	}{
		{
			name:    "missing owner",
			req:     PaintRequest{Repo: "art", Cells: []PaintCell{cell}},
			wantErr: true,
		},
		{
			name:    "missing repo",
			req:     PaintRequest{Owner: "octo", Cells: []PaintCell{cell}},
			wantErr: true,
		},
		{
			name:    "empty cells",
			req:     PaintRequest{Owner: "octo", Repo: "art"},
			wantErr: true,
		},
		{
			name:    "bad date",
			req:     PaintRequest{Owner: "octo", Repo: "art", Cells: []PaintCell{{Date: "2024/01/01", Intensity: 1}}},
			wantErr: true,
		},
		{
			name:    "negative existing count",
			req:     PaintRequest{Owner: "octo", Repo: "art", Cells: []PaintCell{{Date: "2024-01-01", Intensity: 1, ExistingCount: -1}}},
			wantErr: true,
		},
		{
			name:    "out of range intensity is accepted",
			req:     PaintRequest{Owner: "octo", Repo: "art", Cells: []PaintCell{{Date: "2024-01-01", Intensity: 9}}},
			wantErr: false,
		},
		{
			name:    "valid",
			req:     PaintRequest{Owner: "octo", Repo: "art", Cells: []PaintCell{cell}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestPaintRequest_Mode(t *testing.T) {
	req := PaintRequest{}
	if req.Mode() != ModeTransactional {
		t.Errorf("default mode = %s, want transactional", req.Mode())
	}
	req.Incremental = true
	if req.Mode() != ModeIncremental {
		t.Errorf("mode = %s, want incremental", req.Mode())
	}
}

func TestPaintCell_CompactDate(t *testing.T) {
	c := PaintCell{Date: "2024-03-09"}
	if got := c.CompactDate(); got != "20240309" {
		t.Errorf("CompactDate() = %q, want 20240309", got)
	}
}

func TestPaintCell_Day(t *testing.T) {
	c := PaintCell{Date: "2024-03-09"}
	day, err := c.Day()
	if err != nil {
		t.Fatalf("Day() error: %v", err)
	}
	if day.Year() != 2024 || day.Month() != 3 || day.Day() != 9 || day.Location().String() != "UTC" {
		t.Errorf("Day() = %v", day)
	}
}
