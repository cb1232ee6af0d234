// Package snapshot reads and writes the ledger's JSON interchange document.
// The document lists users, groups with their member names, and each group's
// expenses. Expenses written by this system carry a split object so the
// document round-trips; documents without it still load, with membership
// and expense headers only.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
)

type Document struct {
	Users  []User  `json:"users"`
	Groups []Group `json:"groups"`
}

type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Group struct {
	Name     string    `json:"name"`
	Members  []string  `json:"members"`
	Expenses []Expense `json:"expenses"`
}

type Expense struct {
	Description string  `json:"description"`
	Amount      Amount  `json:"amount"`
	PayerName   string  `json:"payerName"`
	Split       *Split  `json:"split,omitempty"`
}

// Split captures an expense's variant payload, keyed by member name.
// Exactly one of the per-variant fields is populated, matching Kind.
type Split struct {
	Kind         string            `json:"kind"`
	Participants []string          `json:"participants,omitempty"`
	Exact        map[string]Amount `json:"exact,omitempty"`
	Percent      map[string]string `json:"percent,omitempty"`
	Weights      map[string]int64  `json:"weights,omitempty"`
}

// Amount serializes as a plain JSON number with two decimals ("800.00").
// Reading accepts both numbers and quoted strings.
type Amount struct {
	Cents int64
}

func (a Amount) MarshalJSON() ([]byte, error) {
	cents := a.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return []byte(fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("parse amount %s: %w", data, err)
	}
	a.Cents = d.Round(2).Shift(2).IntPart()
	return nil
}

func (a Amount) Money() core.Money {
	return core.Money{Cents: a.Cents}
}

// Build assembles the document from the registered users and the live
// group aggregates.
func Build(users []core.Participant, groups []*core.Group) Document {
	doc := Document{
		Users:  make([]User, 0, len(users)),
		Groups: make([]Group, 0, len(groups)),
	}
	for _, u := range users {
		doc.Users = append(doc.Users, User{Name: u.Name, Email: u.Email})
	}
	for _, g := range groups {
		members := g.Members()
		names := make(map[string]string, len(members))
		grp := Group{
			Name:     g.Name,
			Members:  make([]string, 0, len(members)),
			Expenses: make([]Expense, 0),
		}
		for _, m := range members {
			grp.Members = append(grp.Members, m.Name)
			names[m.ID] = m.Name
		}
		for _, e := range g.Expenses() {
			grp.Expenses = append(grp.Expenses, buildExpense(e, names))
		}
		doc.Groups = append(doc.Groups, grp)
	}
	return doc
}

func buildExpense(e core.Expense, names map[string]string) Expense {
	out := Expense{
		Description: e.Description,
		Amount:      Amount{Cents: e.Amount.Cents},
		PayerName:   e.Payer.Name,
		Split:       &Split{Kind: string(e.Kind)},
	}
	switch e.Kind {
	case core.SplitEqual:
		for _, p := range e.Participants {
			out.Split.Participants = append(out.Split.Participants, p.Name)
		}
	case core.SplitExact:
		out.Split.Exact = make(map[string]Amount, len(e.ExactAmounts))
		for id, v := range e.ExactAmounts {
			out.Split.Exact[names[id]] = Amount{Cents: v.Cents}
		}
	case core.SplitPercent:
		out.Split.Percent = make(map[string]string, len(e.Percentages))
		for id, v := range e.Percentages {
			out.Split.Percent[names[id]] = v.String()
		}
	case core.SplitShares:
		out.Split.Weights = make(map[string]int64, len(e.Weights))
		for id, v := range e.Weights {
			out.Split.Weights[names[id]] = v
		}
	}
	return out
}

// Write atomically replaces the document at path. The file is written next
// to its destination and renamed so readers never observe a partial write.
func Write(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	tmp := path + ".tmp." + strconv.Itoa(os.Getpid())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Read loads the document at path.
func Read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read snapshot: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return doc, nil
}
