package core

import "sort"

// Debt is one line of a settlement plan: From pays To the given amount.
type Debt struct {
	From   Participant
	To     Participant
	Amount Money
}

func (d Debt) String() string {
	return d.From.Name + " owes " + d.To.Name + " " + d.Amount.String()
}

// SimplifyDebts reduces the current net positions to a short list of direct
// payments that would zero out every balance.
//
// The matching is greedy: participants are partitioned into creditors and
// debtors, both sorted by owed amount descending (participant id breaks
// ties, so identical inputs always produce identical plans), and the largest
// remaining debtor repeatedly settles min(debt, credit) with the largest
// remaining creditor. The plan is recomputed on every call, never stored.
func (b *BalanceSheet) SimplifyDebts() []Debt {
	type owed struct {
		p     Participant
		cents int64
	}
	var creditors, debtors []owed
	for id, bal := range b.balances {
		switch {
		case bal > 0:
			creditors = append(creditors, owed{b.members[id], bal})
		case bal < 0:
			debtors = append(debtors, owed{b.members[id], -bal})
		}
	}
	byAmountDesc := func(s []owed) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].cents != s[j].cents {
				return s[i].cents > s[j].cents
			}
			return s[i].p.ID < s[j].p.ID
		}
	}
	sort.Slice(creditors, byAmountDesc(creditors))
	sort.Slice(debtors, byAmountDesc(debtors))

	var plan []Debt
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		settle := debtors[i].cents
		if creditors[j].cents < settle {
			settle = creditors[j].cents
		}
		plan = append(plan, Debt{
			From:   debtors[i].p,
			To:     creditors[j].p,
			Amount: Money{Cents: settle},
		})
		debtors[i].cents -= settle
		creditors[j].cents -= settle
		if debtors[i].cents == 0 {
			i++
		}
		if creditors[j].cents == 0 {
			j++
		}
	}
	return plan
}

// SimplifiedDebts renders the settlement plan as display strings of the
// form "Alice owes Bob ₹800.00".
func (b *BalanceSheet) SimplifiedDebts() []string {
	plan := b.SimplifyDebts()
	out := make([]string, len(plan))
	for i, d := range plan {
		out[i] = d.String()
	}
	return out
}
