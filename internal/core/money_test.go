package core

import "testing"

func TestFormatDollars(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{0, "$0"},
		{100, "$1"},
		{105, "$1.05"},
		{120, "$1.20"},
		{99999, "$999.99"},
		{100000, "$1,000"},
		{400000, "$4,000"},
		{341000, "$3,410"},
		{123456789, "$1,234,567.89"},
		{-1500, "-$15"},
	}
	for _, tc := range cases {
		if got := FormatDollars(tc.in); got != tc.out {
			t.Fatalf("FormatDollars(%d) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestDollars(t *testing.T) {
	m := Dollars(2000)
	if m.Cents != 200000 {
		t.Fatalf("expected 200000 cents, got %d", m.Cents)
	}
	if m.String() != "$2,000" {
		t.Fatalf("unexpected string %q", m.String())
	}
	if m.Float() != 2000 {
		t.Fatalf("unexpected float %v", m.Float())
	}
}
