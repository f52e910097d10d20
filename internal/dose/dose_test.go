package dose

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		total     float64
		hasTotal  bool
		fractions int
		hasFrac   bool
	}{
		{"plain cgy", "5040", 5040, true, 0, false},
		{"gy suffix", "50.4Gy", 5040, true, 0, false},
		{"p decimal", "50p4Gy", 5040, true, 0, false},
		{"per fraction cgy", "2000x3", 6000, true, 3, true},
		{"per fraction gy", "20Gyx3", 6000, true, 3, true},
		{"per fraction p decimal", "12p5Gyx4", 5000, true, 4, true},
		{"relative dose", "High", 0, false, 0, false},
		{"relative with level", "Mid01", 0, false, 0, false},
		{"garbage", "abc", 0, false, 0, false},
		{"bad fraction count", "2000xtwo", 0, false, 0, false},
		{"empty", "", 0, false, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			amt := Normalize(tc.text)
			if amt.Raw != tc.text {
				t.Fatalf("raw: expected %q got %q", tc.text, amt.Raw)
			}
			if tc.hasTotal {
				if amt.TotalCGy == nil {
					t.Fatalf("expected total %v, got nil", tc.total)
				}
				if *amt.TotalCGy != tc.total {
					t.Fatalf("total: expected %v got %v", tc.total, *amt.TotalCGy)
				}
			} else if amt.TotalCGy != nil {
				t.Fatalf("expected nil total, got %v", *amt.TotalCGy)
			}
			if tc.hasFrac {
				if amt.Fractions == nil {
					t.Fatalf("expected fractions %d, got nil", tc.fractions)
				}
				if *amt.Fractions != tc.fractions {
					t.Fatalf("fractions: expected %d got %d", tc.fractions, *amt.Fractions)
				}
			} else if amt.Fractions != nil {
				t.Fatalf("expected nil fractions, got %d", *amt.Fractions)
			}
		})
	}
}

func TestNormalizeZeroFractions(t *testing.T) {
	// An explicit x0 still counts as a fraction specification.
	amt := Normalize("200x0")
	if amt.TotalCGy == nil || *amt.TotalCGy != 0 {
		t.Fatalf("expected total 0, got %v", amt.TotalCGy)
	}
	if amt.Fractions == nil || *amt.Fractions != 0 {
		t.Fatalf("expected fractions 0, got %v", amt.Fractions)
	}
}
