// Package ledger is the application boundary of the expense engine: it
// resolves user and group names, serializes access per group, persists
// accepted mutations, and publishes change events.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
)

// ExpenseInput carries everything needed to construct an expense at this
// boundary. Split data is keyed by user display name; the service resolves
// names to participants. For the equal variant Participants names the split
// set; for the other variants the split-data keys are the participant set.
type ExpenseInput struct {
	Kind         core.SplitKind
	Description  string
	Amount       core.Money
	Payer        string
	Participants []string
	ExactAmounts map[string]core.Money
	Percentages  map[string]decimal.Decimal
	Weights      map[string]int64
}

// MemberBalance is one member's net position, in member order.
type MemberBalance struct {
	Member core.Participant
	Net    core.Money
}

// Service orchestrates ledger operations across the store and AMQP. The
// balance engine itself is not safe for concurrent mutation, so every
// operation on a group runs under that group's lock.
type Service struct {
	store  Store
	events *amqp.Client

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(store Store, events *amqp.Client) *Service {
	return &Service{
		store:  store,
		events: events,
		locks:  make(map[string]*sync.Mutex),
	}
}

// groupLock returns the mutex serializing all work on one group.
func (s *Service) groupLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// AddUser registers a new user. Names are unique at this boundary because
// every other operation looks users up by name.
func (s *Service) AddUser(ctx context.Context, name, email string) (core.Participant, error) {
	if _, err := s.store.GetUserByName(ctx, name); err == nil {
		return core.Participant{}, fmt.Errorf("user %q: %w", name, ErrAlreadyExists)
	}
	p := core.NewParticipant(name, email)
	if err := s.store.CreateUser(ctx, p); err != nil {
		return core.Participant{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User added", "user_id", p.ID, "name", p.Name)
	return p, nil
}

// ListUsers returns all registered users.
func (s *Service) ListUsers(ctx context.Context) ([]core.Participant, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Service) resolveUsers(ctx context.Context, names []string) ([]core.Participant, error) {
	out := make([]core.Participant, 0, len(names))
	for _, n := range names {
		p, err := s.store.GetUserByName(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", n, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// CreateGroup creates a group from registered member names.
func (s *Service) CreateGroup(ctx context.Context, name string, memberNames []string) (*core.Group, error) {
	if _, err := s.store.GetGroupByName(ctx, name); err == nil {
		return nil, fmt.Errorf("group %q: %w", name, ErrAlreadyExists)
	}
	members, err := s.resolveUsers(ctx, memberNames)
	if err != nil {
		return nil, err
	}
	g := core.NewGroup(name, members)
	if err := s.store.CreateGroup(ctx, g.ID, g.Name, g.CreatedAt, g.Members()); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	slog.InfoContext(ctx, "Group created", "group_id", g.ID, "name", g.Name, "members", len(memberNames))
	return g, nil
}

// GetGroup loads a group and replays its history into a live aggregate.
func (s *Service) GetGroup(ctx context.Context, name string) (*core.Group, error) {
	lock := s.groupLock(name)
	lock.Lock()
	defer lock.Unlock()
	return s.loadGroup(ctx, name)
}

// loadGroup must run under the group's lock.
func (s *Service) loadGroup(ctx context.Context, name string) (*core.Group, error) {
	rec, err := s.store.GetGroupByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", name, err)
	}
	g, err := rec.Rebuild()
	if err != nil {
		return nil, fmt.Errorf("rebuild group %q: %w", name, err)
	}
	return g, nil
}

// ListGroups returns every group as a live aggregate.
func (s *Service) ListGroups(ctx context.Context) ([]*core.Group, error) {
	recs, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	groups := make([]*core.Group, 0, len(recs))
	for _, rec := range recs {
		g, err := rec.Rebuild()
		if err != nil {
			return nil, fmt.Errorf("rebuild group %q: %w", rec.Name, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// buildExpense resolves names and constructs the variant-specific expense.
func (s *Service) buildExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	payer, err := s.store.GetUserByName(ctx, in.Payer)
	if err != nil {
		return core.Expense{}, fmt.Errorf("payer %q: %w", in.Payer, err)
	}

	switch in.Kind {
	case core.SplitEqual:
		participants, err := s.resolveUsers(ctx, in.Participants)
		if err != nil {
			return core.Expense{}, err
		}
		return core.NewEqualExpense(in.Description, in.Amount, payer, participants)
	case core.SplitExact:
		shares := make(map[core.Participant]core.Money, len(in.ExactAmounts))
		for name, v := range in.ExactAmounts {
			p, err := s.store.GetUserByName(ctx, name)
			if err != nil {
				return core.Expense{}, fmt.Errorf("user %q: %w", name, err)
			}
			shares[p] = v
		}
		return core.NewExactExpense(in.Description, in.Amount, payer, shares)
	case core.SplitPercent:
		percentages := make(map[core.Participant]decimal.Decimal, len(in.Percentages))
		for name, v := range in.Percentages {
			p, err := s.store.GetUserByName(ctx, name)
			if err != nil {
				return core.Expense{}, fmt.Errorf("user %q: %w", name, err)
			}
			percentages[p] = v
		}
		return core.NewPercentExpense(in.Description, in.Amount, payer, percentages)
	case core.SplitShares:
		weights := make(map[core.Participant]int64, len(in.Weights))
		for name, v := range in.Weights {
			p, err := s.store.GetUserByName(ctx, name)
			if err != nil {
				return core.Expense{}, fmt.Errorf("user %q: %w", name, err)
			}
			weights[p] = v
		}
		return core.NewSharesExpense(in.Description, in.Amount, payer, weights)
	default:
		return core.Expense{}, &core.ValidationError{Reason: fmt.Sprintf("unknown split kind %q", in.Kind)}
	}
}

// AddExpense records an expense against a group. The expense is validated
// against the live aggregate before anything is persisted, so a rejected
// expense leaves both the store and the group untouched.
func (s *Service) AddExpense(ctx context.Context, groupName string, in ExpenseInput) (core.Expense, error) {
	lock := s.groupLock(groupName)
	lock.Lock()
	defer lock.Unlock()

	g, err := s.loadGroup(ctx, groupName)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := s.buildExpense(ctx, in)
	if err != nil {
		return core.Expense{}, err
	}

	before := len(g.Members())
	if err := g.AddExpense(e); err != nil {
		return core.Expense{}, err
	}
	// Membership may have auto-expanded; persist the new members first so
	// the expense rows can reference them.
	if added := g.Members()[before:]; len(added) > 0 {
		if err := s.store.AddGroupMembers(ctx, g.ID, added); err != nil {
			return core.Expense{}, fmt.Errorf("add group members: %w", err)
		}
	}
	if err := s.store.AppendExpense(ctx, g.ID, e); err != nil {
		return core.Expense{}, fmt.Errorf("append expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"group", groupName,
		"expense_id", e.ID,
		"kind", string(e.Kind),
		"amount", e.Amount.String(),
		"payer", e.Payer.Name)

	s.publishEvent(ctx, amqp.EventExpenseRecorded, groupName, e.ID)
	return e, nil
}

// RecordSettlement records a manual payment between two registered users.
func (s *Service) RecordSettlement(ctx context.Context, groupName, fromName, toName string, amount core.Money) (Settlement, error) {
	lock := s.groupLock(groupName)
	lock.Lock()
	defer lock.Unlock()

	g, err := s.loadGroup(ctx, groupName)
	if err != nil {
		return Settlement{}, err
	}
	from, err := s.store.GetUserByName(ctx, fromName)
	if err != nil {
		return Settlement{}, fmt.Errorf("user %q: %w", fromName, err)
	}
	to, err := s.store.GetUserByName(ctx, toName)
	if err != nil {
		return Settlement{}, fmt.Errorf("user %q: %w", toName, err)
	}

	if err := g.RecordSettlement(from, to, amount); err != nil {
		return Settlement{}, err
	}
	stl := Settlement{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendSettlement(ctx, g.ID, stl); err != nil {
		return Settlement{}, fmt.Errorf("append settlement: %w", err)
	}

	slog.InfoContext(ctx, "Settlement recorded",
		"group", groupName,
		"settlement_id", stl.ID,
		"from", from.Name,
		"to", to.Name,
		"amount", amount.String())

	s.publishEvent(ctx, amqp.EventSettlementRecorded, groupName, stl.ID)
	return stl, nil
}

// Debts returns the group's simplified settlement plan as display strings.
func (s *Service) Debts(ctx context.Context, groupName string) ([]string, error) {
	lock := s.groupLock(groupName)
	lock.Lock()
	defer lock.Unlock()

	g, err := s.loadGroup(ctx, groupName)
	if err != nil {
		return nil, err
	}
	return g.SimplifiedDebts(), nil
}

// Balances returns every member's net position, in member order.
func (s *Service) Balances(ctx context.Context, groupName string) ([]MemberBalance, error) {
	lock := s.groupLock(groupName)
	lock.Lock()
	defer lock.Unlock()

	g, err := s.loadGroup(ctx, groupName)
	if err != nil {
		return nil, err
	}
	members := g.Members()
	out := make([]MemberBalance, 0, len(members))
	for _, m := range members {
		out = append(out, MemberBalance{Member: m, Net: g.Balance(m)})
	}
	return out, nil
}

// publishEvent notifies listeners of a ledger change. Failures are logged
// and swallowed: the mutation is already durable, the event is advisory.
func (s *Service) publishEvent(ctx context.Context, kind, groupName, refID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, kind, groupName, refID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", kind, "group", groupName, "error", err)
	}
}

// Close releases the event publisher, if any.
func (s *Service) Close() error {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			return fmt.Errorf("close events: %w", err)
		}
	}
	return nil
}
