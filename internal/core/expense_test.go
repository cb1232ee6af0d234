package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testPeople() (alice, bob, carol Participant) {
	alice = NewParticipant("Alice", "alice@example.com")
	bob = NewParticipant("Bob", "bob@example.com")
	carol = NewParticipant("Carol", "carol@example.com")
	return
}

func mustShares(t *testing.T, e Expense) map[string]Money {
	t.Helper()
	shares, err := e.CalculateShares()
	if err != nil {
		t.Fatalf("CalculateShares: %v", err)
	}
	return shares
}

func sumCents(shares map[string]Money) int64 {
	var sum int64
	for _, s := range shares {
		sum += s.Cents
	}
	return sum
}

func TestEqualSplit(t *testing.T) {
	alice, bob, carol := testPeople()
	e, err := NewEqualExpense("Dinner", Money{Cents: 240000}, bob, []Participant{alice, bob, carol})
	if err != nil {
		t.Fatalf("NewEqualExpense: %v", err)
	}
	shares := mustShares(t, e)
	for _, p := range []Participant{alice, bob, carol} {
		if shares[p.ID].Cents != 80000 {
			t.Fatalf("%s: expected ₹800.00, got %s", p.Name, shares[p.ID])
		}
	}
}

func TestEqualSplitRemainderToPayer(t *testing.T) {
	alice, bob, carol := testPeople()
	// 100.00 / 3 = 33.33 each, one leftover cent for the payer
	e, err := NewEqualExpense("Cab", Money{Cents: 10000}, alice, []Participant{alice, bob, carol})
	if err != nil {
		t.Fatalf("NewEqualExpense: %v", err)
	}
	shares := mustShares(t, e)
	if shares[alice.ID].Cents != 3334 {
		t.Fatalf("payer share: expected 3334, got %d", shares[alice.ID].Cents)
	}
	if shares[bob.ID].Cents != 3333 || shares[carol.ID].Cents != 3333 {
		t.Fatalf("non-payer shares: expected 3333 each, got %d and %d", shares[bob.ID].Cents, shares[carol.ID].Cents)
	}
	if sumCents(shares) != 10000 {
		t.Fatalf("shares must sum to the total, got %d", sumCents(shares))
	}
}

func TestEqualSplitPayerNotParticipating(t *testing.T) {
	alice, bob, carol := testPeople()
	// Payer outside the participant set: the rounding remainder is dropped.
	e, err := NewEqualExpense("Cab", Money{Cents: 10000}, alice, []Participant{bob, carol, NewParticipant("Dave", "dave@example.com")})
	if err != nil {
		t.Fatalf("NewEqualExpense: %v", err)
	}
	shares := mustShares(t, e)
	if _, ok := shares[alice.ID]; ok {
		t.Fatal("payer should not appear in the shares")
	}
	if sumCents(shares) != 9999 {
		t.Fatalf("expected the leftover cent to be dropped, sum=%d", sumCents(shares))
	}
}

func TestEqualSplitRequiresParticipants(t *testing.T) {
	alice, _, _ := testPeople()
	_, err := NewEqualExpense("Dinner", Money{Cents: 1000}, alice, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestExactSplit(t *testing.T) {
	alice, bob, _ := testPeople()
	e, err := NewExactExpense("Groceries", Money{Cents: 25000}, alice, map[Participant]Money{
		alice: {Cents: 10000},
		bob:   {Cents: 15000},
	})
	if err != nil {
		t.Fatalf("NewExactExpense: %v", err)
	}
	shares := mustShares(t, e)
	if shares[alice.ID].Cents != 10000 || shares[bob.ID].Cents != 15000 {
		t.Fatalf("unexpected shares: %v", shares)
	}
}

func TestExactSplitSumMismatch(t *testing.T) {
	alice, bob, _ := testPeople()
	e, err := NewExactExpense("Groceries", Money{Cents: 50000}, alice, map[Participant]Money{
		alice: {Cents: 10000},
		bob:   {Cents: 15000},
	})
	if err != nil {
		t.Fatalf("NewExactExpense: %v", err)
	}
	_, err = e.CalculateShares()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != "shares do not sum to total amount" {
		t.Fatalf("unexpected reason: %q", verr.Reason)
	}
}

func TestPercentSplit(t *testing.T) {
	alice, bob, carol := testPeople()
	e, err := NewPercentExpense("Hotel", Money{Cents: 40000}, alice, map[Participant]decimal.Decimal{
		alice: decimal.NewFromInt(50),
		bob:   decimal.NewFromInt(25),
		carol: decimal.NewFromInt(25),
	})
	if err != nil {
		t.Fatalf("NewPercentExpense: %v", err)
	}
	shares := mustShares(t, e)
	if shares[alice.ID].Cents != 20000 || shares[bob.ID].Cents != 10000 || shares[carol.ID].Cents != 10000 {
		t.Fatalf("unexpected shares: %v", shares)
	}
}

func TestPercentSplitRounding(t *testing.T) {
	alice, bob, carol := testPeople()
	third := decimal.RequireFromString("33.33")
	e, err := NewPercentExpense("Hotel", Money{Cents: 10000}, alice, map[Participant]decimal.Decimal{
		alice: decimal.RequireFromString("33.34"),
		bob:   third,
		carol: third,
	})
	if err != nil {
		t.Fatalf("NewPercentExpense: %v", err)
	}
	shares := mustShares(t, e)
	if sumCents(shares) != 10000 {
		t.Fatalf("shares must sum to the total, got %d", sumCents(shares))
	}
}

func TestPercentSplitMustSumTo100(t *testing.T) {
	alice, bob, _ := testPeople()
	e, err := NewPercentExpense("Hotel", Money{Cents: 40000}, alice, map[Participant]decimal.Decimal{
		alice: decimal.NewFromInt(50),
		bob:   decimal.NewFromInt(40),
	})
	if err != nil {
		t.Fatalf("NewPercentExpense: %v", err)
	}
	_, err = e.CalculateShares()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != "percentages must sum to 100" {
		t.Fatalf("unexpected reason: %q", verr.Reason)
	}
}

func TestWeightedSplit(t *testing.T) {
	alice, bob, carol := testPeople()
	e, err := NewSharesExpense("Rent", Money{Cents: 40000}, carol, map[Participant]int64{
		alice: 2,
		bob:   1,
		carol: 1,
	})
	if err != nil {
		t.Fatalf("NewSharesExpense: %v", err)
	}
	shares := mustShares(t, e)
	if shares[alice.ID].Cents != 20000 || shares[bob.ID].Cents != 10000 || shares[carol.ID].Cents != 10000 {
		t.Fatalf("unexpected shares: %v", shares)
	}
}

func TestWeightedSplitZeroTotalWeight(t *testing.T) {
	alice, bob, _ := testPeople()
	e, err := NewSharesExpense("Rent", Money{Cents: 40000}, alice, map[Participant]int64{
		alice: 0,
		bob:   0,
	})
	if err != nil {
		t.Fatalf("NewSharesExpense: %v", err)
	}
	_, err = e.CalculateShares()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != "total weight cannot be zero" {
		t.Fatalf("unexpected reason: %q", verr.Reason)
	}
}

func TestCalculateSharesIsIdempotent(t *testing.T) {
	alice, bob, carol := testPeople()
	e, err := NewSharesExpense("Rent", Money{Cents: 10001}, alice, map[Participant]int64{
		alice: 3,
		bob:   2,
		carol: 2,
	})
	if err != nil {
		t.Fatalf("NewSharesExpense: %v", err)
	}
	first := mustShares(t, e)
	second := mustShares(t, e)
	if len(first) != len(second) {
		t.Fatalf("share counts differ: %d vs %d", len(first), len(second))
	}
	for id, v := range first {
		if second[id] != v {
			t.Fatalf("share for %s differs between calls: %s vs %s", id, v, second[id])
		}
	}
}

func TestExpenseConstructorValidation(t *testing.T) {
	alice, bob, _ := testPeople()
	if _, err := NewEqualExpense("", Money{Cents: 100}, alice, []Participant{alice, bob}); err != ErrEmptyDescription {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
	if _, err := NewEqualExpense("Dinner", Money{}, alice, []Participant{alice, bob}); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
