package ledger

import (
	"context"
	"time"

	"splitledger/internal/core"
)

// Settlement is a persisted manual payment between two participants.
type Settlement struct {
	ID        string
	From      core.Participant
	To        core.Participant
	Amount    core.Money
	CreatedAt time.Time
}

// GroupRecord is a group as the store returns it: identity, ordered
// membership, and the full ledger history needed to rebuild balances.
type GroupRecord struct {
	ID          string
	Name        string
	CreatedAt   time.Time
	Members     []core.Participant
	Expenses    []core.Expense
	Settlements []Settlement
}

// Rebuild replays the record into a live group aggregate. Expense and
// settlement deltas commute, so replaying expenses then settlements yields
// the same balances as the original interleaving.
func (r GroupRecord) Rebuild() (*core.Group, error) {
	g := core.NewGroup(r.Name, r.Members)
	g.ID = r.ID
	g.CreatedAt = r.CreatedAt
	for _, e := range r.Expenses {
		if err := g.AddExpense(e); err != nil {
			return nil, err
		}
	}
	for _, s := range r.Settlements {
		if err := g.RecordSettlement(s.From, s.To, s.Amount); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Store is the outbound port for ledger persistence. Implementations keep
// the full split payload of every expense so a reloaded group carries the
// same shares as the live one.
type Store interface {
	CreateUser(ctx context.Context, p core.Participant) error
	GetUserByName(ctx context.Context, name string) (core.Participant, error)
	ListUsers(ctx context.Context) ([]core.Participant, error)

	CreateGroup(ctx context.Context, id, name string, createdAt time.Time, members []core.Participant) error
	AddGroupMembers(ctx context.Context, groupID string, members []core.Participant) error
	GetGroupByName(ctx context.Context, name string) (GroupRecord, error)
	ListGroups(ctx context.Context) ([]GroupRecord, error)

	AppendExpense(ctx context.Context, groupID string, e core.Expense) error
	AppendSettlement(ctx context.Context, groupID string, s Settlement) error
}
