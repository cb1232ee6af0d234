package core

import (
	"reflect"
	"testing"
)

func dinnerSheet(t *testing.T) (*BalanceSheet, Participant, Participant, Participant) {
	t.Helper()
	alice, bob, carol := testPeople()
	sheet := NewBalanceSheet([]Participant{alice, bob, carol})
	e, err := NewEqualExpense("Dinner", Money{Cents: 240000}, bob, []Participant{alice, bob, carol})
	if err != nil {
		t.Fatalf("NewEqualExpense: %v", err)
	}
	if err := sheet.ApplyExpense(e); err != nil {
		t.Fatalf("ApplyExpense: %v", err)
	}
	return sheet, alice, bob, carol
}

func TestSimplifyDebtsDinner(t *testing.T) {
	sheet, _, _, _ := dinnerSheet(t)
	lines := sheet.SimplifiedDebts()
	want := map[string]bool{
		"Alice owes Bob ₹800.00": false,
		"Carol owes Bob ₹800.00": false,
	}
	for _, l := range lines {
		if _, ok := want[l]; !ok {
			t.Fatalf("unexpected debt line %q", l)
		}
		want[l] = true
	}
	for l, seen := range want {
		if !seen {
			t.Fatalf("missing debt line %q", l)
		}
	}
}

func TestSettlementClearsDebt(t *testing.T) {
	sheet, alice, bob, _ := dinnerSheet(t)
	if err := sheet.RecordSettlement(alice, bob, Money{Cents: 80000}); err != nil {
		t.Fatalf("RecordSettlement: %v", err)
	}
	for _, d := range sheet.SimplifyDebts() {
		if d.From.ID == alice.ID && d.To.ID == bob.ID {
			t.Fatalf("alice's debt to bob should be cleared, got %s", d)
		}
	}
}

func TestSimplifyDebtsInvariants(t *testing.T) {
	alice, bob, carol := testPeople()
	dave := NewParticipant("Dave", "dave@example.com")
	sheet := NewBalanceSheet([]Participant{alice, bob, carol, dave})

	add := func(build func() (Expense, error)) {
		t.Helper()
		e, err := build()
		if err != nil {
			t.Fatalf("build expense: %v", err)
		}
		if err := sheet.ApplyExpense(e); err != nil {
			t.Fatalf("ApplyExpense: %v", err)
		}
	}
	add(func() (Expense, error) {
		return NewEqualExpense("Dinner", Money{Cents: 10000}, alice, []Participant{alice, bob, carol, dave})
	})
	add(func() (Expense, error) {
		return NewSharesExpense("Rent", Money{Cents: 90001}, bob, map[Participant]int64{alice: 1, bob: 2, carol: 3})
	})
	add(func() (Expense, error) {
		return NewEqualExpense("Fuel", Money{Cents: 5555}, carol, []Participant{bob, carol, dave})
	})

	var positive int64
	for _, p := range []Participant{alice, bob, carol, dave} {
		if bal := sheet.Balance(p); bal.IsPositive() {
			positive += bal.Cents
		}
	}
	var settled int64
	for _, d := range sheet.SimplifyDebts() {
		if d.From.ID == d.To.ID {
			t.Fatalf("debt from a participant to themselves: %s", d)
		}
		if !d.Amount.IsPositive() {
			t.Fatalf("non-positive debt amount: %s", d)
		}
		if sheet.Balance(d.From).IsZero() || sheet.Balance(d.To).IsZero() {
			t.Fatalf("participant with zero balance appears in the plan: %s", d)
		}
		settled += d.Amount.Cents
	}
	if settled != positive {
		t.Fatalf("settled %d cents but %d cents are owed", settled, positive)
	}
}

func TestSimplifyDebtsIsDeterministic(t *testing.T) {
	sheet, _, _, _ := dinnerSheet(t)
	first := sheet.SimplifiedDebts()
	second := sheet.SimplifiedDebts()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("plans differ between calls: %v vs %v", first, second)
	}
}

func TestSimplifyDebtsEmptySheet(t *testing.T) {
	alice, bob, _ := testPeople()
	sheet := NewBalanceSheet([]Participant{alice, bob})
	if plan := sheet.SimplifyDebts(); len(plan) != 0 {
		t.Fatalf("expected no debts on a fresh sheet, got %v", plan)
	}
}
