package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		value, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{2, 1, 0, 1},
		{-0.5, -1, 1, -0.5},
	}
	for _, tt := range tests {
		if got := Clamp(tt.value, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.value, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestCheckRange(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{name: "inside", value: 0.5},
		{name: "lower edge", value: 0},
		{name: "upper edge", value: 1},
		{name: "below", value: -0.1, wantErr: true},
		{name: "above", value: 1.1, wantErr: true},
		{name: "nan", value: math.NaN(), wantErr: true},
		{name: "inf", value: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRange("wet amount", tt.value, 0, 1)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckRange(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestIsFinite(t *testing.T) {
	for _, x := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if IsFinite(x) {
			t.Errorf("IsFinite(%v) = true", x)
		}
	}
	if !IsFinite(-3.5) {
		t.Error("IsFinite(-3.5) = false")
	}
}

func TestFlushDenormals(t *testing.T) {
	for _, x := range []float64{1e-35, -1e-35, 0} {
		if got := FlushDenormals(x); got != 0 {
			t.Errorf("FlushDenormals(%v) = %v, want 0", x, got)
		}
	}
	if got := FlushDenormals(-0.25); got != -0.25 {
		t.Errorf("FlushDenormals(-0.25) = %v", got)
	}
}

func TestLinearToDB(t *testing.T) {
	if db := LinearToDB(0.5); math.Abs(db+6.0206) > 1e-4 {
		t.Errorf("LinearToDB(0.5) = %v, want about -6.02", db)
	}
	if db := LinearToDB(1); db != 0 {
		t.Errorf("LinearToDB(1) = %v, want 0", db)
	}
	if !math.IsInf(LinearToDB(0), -1) {
		t.Error("expected -Inf for silence")
	}
	if !math.IsNaN(LinearToDB(-1)) {
		t.Error("expected NaN for negative amplitude")
	}
}
