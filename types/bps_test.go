package types

import "testing"

func TestBpsApplyTo(t *testing.T) {
	tests := []struct {
		name   string
		bps    Bps
		amount int64
		want   int64
	}{
		{"5% of 100000", Bps(500), 100000, 5000},
		{"15% of 100000", Bps(1500), 100000, 15000},
		{"100% of 100000", Full, 100000, 100000},
		{"zero bps", Bps(0), 100000, 0},
		{"zero amount", Bps(500), 0, 0},
		{"truncates down", Bps(333), 100, 3},   // 3.33 -> 3
		{"truncates to zero", Bps(1), 100, 0},  // 0.01 -> 0
		{"one bp of 10000", Bps(1), 10000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bps.ApplyTo(tt.amount); got != tt.want {
				t.Errorf("ApplyTo: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBpsCap(t *testing.T) {
	tests := []struct {
		name string
		b    Bps
		max  Bps
		want Bps
	}{
		{"under cap", Bps(1500), Bps(2500), Bps(1500)},
		{"at cap", Bps(2500), Bps(2500), Bps(2500)},
		{"over cap", Bps(9000), Bps(2500), Bps(2500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.b.Cap(tt.max); got != tt.want {
				t.Errorf("Cap: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBpsValid(t *testing.T) {
	tests := []struct {
		b    Bps
		want bool
	}{
		{Bps(0), true},
		{Bps(500), true},
		{Full, true},
		{Bps(10001), false},
		{Bps(-1), false},
	}

	for _, tt := range tests {
		if got := tt.b.Valid(); got != tt.want {
			t.Errorf("Valid(%d): got %v, want %v", tt.b, got, tt.want)
		}
	}
}

func TestBpsString(t *testing.T) {
	tests := []struct {
		b    Bps
		want string
	}{
		{Bps(500), "5%"},
		{Bps(1525), "15.25%"},
		{Bps(10000), "100%"},
		{Bps(1), "0.01%"},
		{Bps(0), "0%"},
	}

	for _, tt := range tests {
		if got := tt.b.String(); got != tt.want {
			t.Errorf("String(%d): got %q, want %q", tt.b, got, tt.want)
		}
	}
}

func TestMarkup(t *testing.T) {
	tests := []struct {
		name  string
		price int64
		face  int64
		want  Bps
	}{
		{"10% over face", 110000, 100000, Bps(1000)},
		{"at face", 100000, 100000, Bps(0)},
		{"below face", 90000, 100000, Bps(0)},
		{"150% over face", 250000, 100000, Bps(15000)},
		{"truncates", 100001, 100000, Bps(0)}, // 0.1 bps -> 0
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Markup(tt.price, tt.face); got != tt.want {
				t.Errorf("Markup: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPerUnit(t *testing.T) {
	tests := []struct {
		name   string
		total  int64
		amount int64
		want   int64
	}{
		{"single unit", 110000, 1, 110000},
		{"even split", 200000, 4, 50000},
		{"truncates down", 100001, 2, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PerUnit(tt.total, tt.amount); got != tt.want {
				t.Errorf("PerUnit: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPerUnitZeroAmountPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for zero amount")
		}
	}()

	_ = PerUnit(100, 0)
}
