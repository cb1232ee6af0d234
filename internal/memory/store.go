// Package memory implements the ledger store in process memory. It backs
// tests and the memory data backend; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
)

type groupState struct {
	id          string
	name        string
	createdAt   time.Time
	members     []core.Participant
	expenses    []core.Expense
	settlements []ledger.Settlement
}

type Store struct {
	mu     sync.Mutex
	users  []core.Participant
	groups []*groupState
}

func New() *Store {
	return &Store{}
}

func (s *Store) CreateUser(_ context.Context, p core.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Name == p.Name {
			return fmt.Errorf("user %q: %w", p.Name, ledger.ErrAlreadyExists)
		}
	}
	s.users = append(s.users, p)
	return nil
}

func (s *Store) GetUserByName(_ context.Context, name string) (core.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Name == name {
			return u, nil
		}
	}
	return core.Participant{}, ledger.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]core.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Participant(nil), s.users...), nil
}

func (s *Store) CreateGroup(_ context.Context, id, name string, createdAt time.Time, members []core.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.name == name {
			return fmt.Errorf("group %q: %w", name, ledger.ErrAlreadyExists)
		}
	}
	s.groups = append(s.groups, &groupState{
		id:        id,
		name:      name,
		createdAt: createdAt,
		members:   append([]core.Participant(nil), members...),
	})
	return nil
}

func (s *Store) AddGroupMembers(_ context.Context, groupID string, members []core.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.groupByID(groupID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if !containsMember(g.members, m) {
			g.members = append(g.members, m)
		}
	}
	return nil
}

func (s *Store) GetGroupByName(_ context.Context, name string) (ledger.GroupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.name == name {
			return g.record(), nil
		}
	}
	return ledger.GroupRecord{}, ledger.ErrNotFound
}

func (s *Store) ListGroups(_ context.Context) ([]ledger.GroupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.GroupRecord, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g.record())
	}
	return out, nil
}

func (s *Store) AppendExpense(_ context.Context, groupID string, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.groupByID(groupID)
	if err != nil {
		return err
	}
	g.expenses = append(g.expenses, e)
	return nil
}

func (s *Store) AppendSettlement(_ context.Context, groupID string, stl ledger.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.groupByID(groupID)
	if err != nil {
		return err
	}
	g.settlements = append(g.settlements, stl)
	return nil
}

// groupByID must run under s.mu.
func (s *Store) groupByID(id string) (*groupState, error) {
	for _, g := range s.groups {
		if g.id == id {
			return g, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (g *groupState) record() ledger.GroupRecord {
	return ledger.GroupRecord{
		ID:          g.id,
		Name:        g.name,
		CreatedAt:   g.createdAt,
		Members:     append([]core.Participant(nil), g.members...),
		Expenses:    append([]core.Expense(nil), g.expenses...),
		Settlements: append([]ledger.Settlement(nil), g.settlements...),
	}
}

func containsMember(members []core.Participant, p core.Participant) bool {
	for _, m := range members {
		if m.ID == p.ID {
			return true
		}
	}
	return false
}
