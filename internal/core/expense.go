package core

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SplitKind selects the rule an expense uses to divide its total.
type SplitKind string

const (
	SplitEqual   SplitKind = "equal"
	SplitExact   SplitKind = "exact"
	SplitPercent SplitKind = "percent"
	SplitShares  SplitKind = "shares"
)

// IsValid reports whether the kind is one of the four supported variants.
func (k SplitKind) IsValid() bool {
	switch k {
	case SplitEqual, SplitExact, SplitPercent, SplitShares:
		return true
	}
	return false
}

// Expense is a single payment event: a total amount paid by one participant,
// divided among a set of participants by one of four split variants. An
// expense is immutable once constructed; CalculateShares is a pure function
// of its stored data.
//
// Exactly one of ExactAmounts, Percentages, or Weights is populated,
// matching Kind. All three are keyed by participant ID.
type Expense struct {
	ID           string
	Description  string
	Amount       Money
	Payer        Participant
	Participants []Participant
	Kind         SplitKind
	ExactAmounts map[string]Money
	Percentages  map[string]decimal.Decimal
	Weights      map[string]int64
	CreatedAt    time.Time
}

func newExpense(description string, amount Money, payer Participant, participants []Participant, kind SplitKind) (Expense, error) {
	if strings.TrimSpace(description) == "" {
		return Expense{}, ErrEmptyDescription
	}
	if amount.Cents <= 0 {
		return Expense{}, ErrInvalidAmount
	}
	return Expense{
		ID:           uuid.NewString(),
		Description:  description,
		Amount:       amount,
		Payer:        payer,
		Participants: append([]Participant(nil), participants...),
		Kind:         kind,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// NewEqualExpense divides the total evenly among the participants. The
// leftover cent from rounding, if any, lands on the payer.
func NewEqualExpense(description string, amount Money, payer Participant, participants []Participant) (Expense, error) {
	if len(participants) == 0 {
		return Expense{}, validationErr("equal split requires at least one participant")
	}
	return newExpense(description, amount, payer, participants, SplitEqual)
}

// NewExactExpense assigns each participant the exact amount given for them.
// The amounts must sum to the expense total; the mismatch is reported by
// CalculateShares, not here, so a malformed expense can still be inspected.
func NewExactExpense(description string, amount Money, payer Participant, shares map[Participant]Money) (Expense, error) {
	e, err := newExpense(description, amount, payer, participantsOf(shares), SplitExact)
	if err != nil {
		return Expense{}, err
	}
	e.ExactAmounts = make(map[string]Money, len(shares))
	for p, v := range shares {
		e.ExactAmounts[p.ID] = v
	}
	return e, nil
}

// NewPercentExpense assigns each participant a percentage of the total.
// Percentages are checked at 2-decimal precision by CalculateShares.
func NewPercentExpense(description string, amount Money, payer Participant, percentages map[Participant]decimal.Decimal) (Expense, error) {
	e, err := newExpense(description, amount, payer, participantsOf(percentages), SplitPercent)
	if err != nil {
		return Expense{}, err
	}
	e.Percentages = make(map[string]decimal.Decimal, len(percentages))
	for p, v := range percentages {
		e.Percentages[p.ID] = v
	}
	return e, nil
}

// NewSharesExpense divides the total proportionally to non-negative integer
// weights (e.g. 2:1:1).
func NewSharesExpense(description string, amount Money, payer Participant, weights map[Participant]int64) (Expense, error) {
	e, err := newExpense(description, amount, payer, participantsOf(weights), SplitShares)
	if err != nil {
		return Expense{}, err
	}
	e.Weights = make(map[string]int64, len(weights))
	for p, v := range weights {
		e.Weights[p.ID] = v
	}
	return e, nil
}

// participantsOf extracts the key set of a split-data map in a deterministic
// order (sorted by participant id).
func participantsOf[V any](m map[Participant]V) []Participant {
	out := make([]Participant, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CalculateShares returns the amount owed per participant (keyed by id).
// The values sum to exactly the expense total: any cent-level rounding
// remainder is absorbed into the payer's entry. When the payer is not among
// the shared participants the remainder is dropped instead, so callers that
// need exact sums must include the payer in the split.
//
// A *ValidationError is returned when the variant's precondition fails.
// The method has no side effects; repeated calls return equal results.
func (e Expense) CalculateShares() (map[string]Money, error) {
	switch e.Kind {
	case SplitEqual:
		return e.equalShares()
	case SplitExact:
		return e.exactShares()
	case SplitPercent:
		return e.percentShares()
	case SplitShares:
		return e.weightedShares()
	default:
		return nil, validationErr("unknown split kind " + string(e.Kind))
	}
}

func (e Expense) equalShares() (map[string]Money, error) {
	n := len(e.Participants)
	if n == 0 {
		return map[string]Money{}, nil
	}
	per := moneyFromDecimal(e.Amount.Decimal().DivRound(decimal.NewFromInt(int64(n)), 2))
	shares := make(map[string]Money, n)
	for _, p := range e.Participants {
		shares[p.ID] = per
	}
	e.absorbRemainder(shares)
	return shares, nil
}

func (e Expense) exactShares() (map[string]Money, error) {
	var sum int64
	for _, v := range e.ExactAmounts {
		sum += v.Cents
	}
	if sum != e.Amount.Cents {
		return nil, validationErr("shares do not sum to total amount")
	}
	shares := make(map[string]Money, len(e.ExactAmounts))
	for id, v := range e.ExactAmounts {
		shares[id] = v
	}
	return shares, nil
}

func (e Expense) percentShares() (map[string]Money, error) {
	sum := decimal.Zero
	for _, p := range e.Percentages {
		sum = sum.Add(p)
	}
	if !sum.Round(2).Equal(decimal.NewFromInt(100)) {
		return nil, validationErr("percentages must sum to 100")
	}
	hundred := decimal.NewFromInt(100)
	shares := make(map[string]Money, len(e.Percentages))
	for id, p := range e.Percentages {
		shares[id] = moneyFromDecimal(e.Amount.Decimal().Mul(p).DivRound(hundred, 2))
	}
	e.absorbRemainder(shares)
	return shares, nil
}

func (e Expense) weightedShares() (map[string]Money, error) {
	var totalWeight int64
	for _, w := range e.Weights {
		if w < 0 {
			return nil, validationErr("weights cannot be negative")
		}
		totalWeight += w
	}
	if totalWeight == 0 {
		return nil, validationErr("total weight cannot be zero")
	}
	div := decimal.NewFromInt(totalWeight)
	shares := make(map[string]Money, len(e.Weights))
	for id, w := range e.Weights {
		shares[id] = moneyFromDecimal(e.Amount.Decimal().Mul(decimal.NewFromInt(w)).DivRound(div, 2))
	}
	e.absorbRemainder(shares)
	return shares, nil
}

// absorbRemainder adjusts the payer's share so the values sum to the total.
// With the payer absent from the shares the remainder stays unassigned.
func (e Expense) absorbRemainder(shares map[string]Money) {
	var sum int64
	for _, s := range shares {
		sum += s.Cents
	}
	diff := e.Amount.Cents - sum
	if diff == 0 {
		return
	}
	if s, ok := shares[e.Payer.ID]; ok {
		shares[e.Payer.ID] = Money{Cents: s.Cents + diff}
	}
}

func (e Expense) String() string {
	return e.Description + ": " + e.Amount.String() + " paid by " + e.Payer.Name
}
