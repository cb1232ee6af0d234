package core

import (
	"errors"
	"testing"
)

func TestGroupAddExpenseAutoAddsMembers(t *testing.T) {
	alice, bob, carol := testPeople()
	g := NewGroup("Trip", []Participant{alice})

	e, err := NewEqualExpense("Dinner", Money{Cents: 240000}, bob, []Participant{alice, bob, carol})
	if err != nil {
		t.Fatalf("NewEqualExpense: %v", err)
	}
	if err := g.AddExpense(e); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if len(g.Members()) != 3 {
		t.Fatalf("expected 3 members, got %d", len(g.Members()))
	}
	if !g.HasMember(bob) || !g.HasMember(carol) {
		t.Fatal("payer and participants must become members")
	}
	if len(g.Expenses()) != 1 {
		t.Fatalf("expected 1 expense in the history, got %d", len(g.Expenses()))
	}
}

func TestGroupAddExpenseRollsBackOnValidationFailure(t *testing.T) {
	alice, bob, _ := testPeople()
	g := NewGroup("Trip", []Participant{alice})

	bad, err := NewExactExpense("Broken", Money{Cents: 50000}, alice, map[Participant]Money{
		alice: {Cents: 10000},
		bob:   {Cents: 15000},
	})
	if err != nil {
		t.Fatalf("NewExactExpense: %v", err)
	}
	var verr *ValidationError
	if err := g.AddExpense(bad); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(g.Expenses()) != 0 {
		t.Fatal("rejected expense must not be appended to the history")
	}
	if g.HasMember(bob) {
		t.Fatal("rejected expense must not expand membership")
	}
	if !g.Balance(alice).IsZero() {
		t.Fatal("rejected expense must not change balances")
	}
}

func TestGroupAddMemberIsIdempotent(t *testing.T) {
	alice, _, _ := testPeople()
	g := NewGroup("Trip", []Participant{alice})
	g.AddMember(alice)
	g.AddMember(alice)
	if len(g.Members()) != 1 {
		t.Fatalf("expected 1 member, got %d", len(g.Members()))
	}
}

func TestGroupScenario(t *testing.T) {
	alice, bob, carol := testPeople()
	g := NewGroup("Flat", []Participant{alice, bob, carol})

	e, err := NewEqualExpense("Dinner", Money{Cents: 240000}, bob, []Participant{alice, bob, carol})
	if err != nil {
		t.Fatalf("NewEqualExpense: %v", err)
	}
	if err := g.AddExpense(e); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	lines := g.SimplifiedDebts()
	if len(lines) != 2 {
		t.Fatalf("expected 2 debt lines, got %v", lines)
	}

	if err := g.RecordSettlement(alice, bob, Money{Cents: 80000}); err != nil {
		t.Fatalf("RecordSettlement: %v", err)
	}
	lines = g.SimplifiedDebts()
	if len(lines) != 1 || lines[0] != "Carol owes Bob ₹800.00" {
		t.Fatalf("expected only carol's debt to remain, got %v", lines)
	}
}

func TestGroupSnapshotsAreCopies(t *testing.T) {
	alice, bob, _ := testPeople()
	g := NewGroup("Trip", []Participant{alice, bob})

	members := g.Members()
	members[0] = NewParticipant("Mallory", "mallory@example.com")
	if g.Members()[0].Name != "Alice" {
		t.Fatal("Members must return a copy")
	}
}
