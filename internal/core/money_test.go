package core

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"2400", 240000, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.cents {
				t.Fatalf("%q expected %d cents, got %d (err=%v)", tc.in, tc.cents, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{80000, "₹800.00"},
		{1, "₹0.01"},
		{123456, "₹1234.56"},
		{-250, "-₹2.50"},
		{0, "₹0.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Fatalf("%d cents: expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 150}
	b := Money{Cents: 50}
	if got := a.Add(b); got.Cents != 200 {
		t.Fatalf("Add: expected 200, got %d", got.Cents)
	}
	if got := a.Sub(b); got.Cents != 100 {
		t.Fatalf("Sub: expected 100, got %d", got.Cents)
	}
	if got := b.Sub(a); got.Cents != -100 || got.IsPositive() {
		t.Fatalf("Sub: expected -100 and not positive, got %d", got.Cents)
	}
	if !(Money{}).IsZero() {
		t.Fatal("zero value should be zero")
	}
	if err := (Money{Cents: -1}).Validate(); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
