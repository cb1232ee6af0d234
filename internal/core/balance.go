package core

// BalanceSheet tracks the net position of every participant in one group.
// A positive balance means the group owes the participant money, a negative
// balance means the participant owes the group. After every accepted
// mutation the balances sum to zero (each expense distributes exactly what
// its payer paid, each settlement moves value between exactly two parties).
//
// A BalanceSheet is not safe for concurrent mutation; callers serialize
// access per group.
type BalanceSheet struct {
	balances map[string]int64 // net cents by participant id
	members  map[string]Participant
}

// NewBalanceSheet creates a sheet with every given member at ₹0.00.
func NewBalanceSheet(members []Participant) *BalanceSheet {
	b := &BalanceSheet{
		balances: make(map[string]int64, len(members)),
		members:  make(map[string]Participant, len(members)),
	}
	for _, m := range members {
		b.EnsureMember(m)
	}
	return b
}

// EnsureMember registers p with a zero balance if absent. No-op otherwise.
func (b *BalanceSheet) EnsureMember(p Participant) {
	if _, ok := b.balances[p.ID]; !ok {
		b.balances[p.ID] = 0
		b.members[p.ID] = p
	}
}

// ApplyExpense folds an expense into the net positions: the payer gains
// total minus their own share, every other shared participant loses their
// share. A share-validation failure is returned before any balance changes,
// so the operation is atomic.
func (b *BalanceSheet) ApplyExpense(e Expense) error {
	shares, err := e.CalculateShares()
	if err != nil {
		return err
	}
	b.EnsureMember(e.Payer)
	for _, p := range e.Participants {
		b.EnsureMember(p)
	}
	for id, share := range shares {
		if id == e.Payer.ID {
			continue
		}
		b.balances[id] -= share.Cents
	}
	b.balances[e.Payer.ID] += e.Amount.Cents - shares[e.Payer.ID].Cents
	return nil
}

// RecordSettlement registers that from paid amount to to, outside of any
// expense: from owes less (balance up), to is owed less (balance down).
// Non-positive amounts are rejected with ErrInvalidAmount.
func (b *BalanceSheet) RecordSettlement(from, to Participant, amount Money) error {
	if amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	b.EnsureMember(from)
	b.EnsureMember(to)
	b.balances[from.ID] += amount.Cents
	b.balances[to.ID] -= amount.Cents
	return nil
}

// Balance returns p's stored net position, or ₹0.00 for unknown
// participants. Read-only.
func (b *BalanceSheet) Balance(p Participant) Money {
	return Money{Cents: b.balances[p.ID]}
}

// Total returns the sum of all net positions. Zero whenever every expense
// absorbed its rounding remainder (see Expense.CalculateShares).
func (b *BalanceSheet) Total() Money {
	var sum int64
	for _, c := range b.balances {
		sum += c
	}
	return Money{Cents: sum}
}
