package core

import (
	"time"

	"github.com/google/uuid"
)

// Group is the aggregate root and unit of consistency: it owns its ordered
// member list, its append-only expense history, and exactly one balance
// sheet. Groups are mutated only through AddMember, AddExpense, and
// RecordSettlement.
type Group struct {
	ID        string
	Name      string
	CreatedAt time.Time

	members  []Participant
	expenses []Expense
	sheet    *BalanceSheet
}

// NewGroup creates a group with the given initial members.
func NewGroup(name string, members []Participant) *Group {
	g := &Group{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		sheet:     NewBalanceSheet(nil),
	}
	for _, m := range members {
		g.AddMember(m)
	}
	return g
}

// AddMember appends p to the group if not already present and registers
// them on the balance sheet at ₹0.00.
func (g *Group) AddMember(p Participant) {
	if g.HasMember(p) {
		return
	}
	g.members = append(g.members, p)
	g.sheet.EnsureMember(p)
}

// HasMember reports membership by participant id.
func (g *Group) HasMember(p Participant) bool {
	for _, m := range g.members {
		if m.ID == p.ID {
			return true
		}
	}
	return false
}

// AddExpense validates the expense's shares, auto-adds the payer and any
// participants who are not yet members, appends the expense to the history,
// and applies it to the balance sheet. On a validation failure nothing is
// mutated: membership, history, and balances are all untouched.
func (g *Group) AddExpense(e Expense) error {
	// Validate before touching membership so the whole operation is atomic.
	if _, err := e.CalculateShares(); err != nil {
		return err
	}
	g.AddMember(e.Payer)
	for _, p := range e.Participants {
		g.AddMember(p)
	}
	g.expenses = append(g.expenses, e)
	return g.sheet.ApplyExpense(e)
}

// RecordSettlement registers a manual payment between two participants.
// The parties become tracked on the balance sheet even if they were not
// members before.
func (g *Group) RecordSettlement(from, to Participant, amount Money) error {
	return g.sheet.RecordSettlement(from, to, amount)
}

// Members returns a snapshot of the ordered member list.
func (g *Group) Members() []Participant {
	return append([]Participant(nil), g.members...)
}

// Expenses returns a snapshot of the expense history in insertion order.
func (g *Group) Expenses() []Expense {
	return append([]Expense(nil), g.expenses...)
}

// Balance returns p's net position within the group.
func (g *Group) Balance(p Participant) Money {
	return g.sheet.Balance(p)
}

// Balances returns the net position of every tracked participant, in member
// order.
func (g *Group) Balances() map[string]Money {
	out := make(map[string]Money, len(g.members))
	for _, m := range g.members {
		out[m.ID] = g.sheet.Balance(m)
	}
	return out
}

// SimplifyDebts returns the group's minimal settlement plan.
func (g *Group) SimplifyDebts() []Debt {
	return g.sheet.SimplifyDebts()
}

// SimplifiedDebts returns the settlement plan as display strings.
func (g *Group) SimplifiedDebts() []string {
	return g.sheet.SimplifiedDebts()
}
