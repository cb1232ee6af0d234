// Package storage persists the ledger in SQLite. Unlike a flat snapshot
// export, the schema keeps the full split payload of every expense, so a
// reloaded group replays to exactly the balances the live one had.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
	"splitledger/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, p core.Participant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email) VALUES (?, ?, ?)`,
		p.ID, p.Name, p.Email)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", p.Name, ledger.ErrAlreadyExists)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	slog.InfoContext(ctx, "User saved", "id", p.ID, "name", p.Name)
	return nil
}

func (r *SQLiteRepository) GetUserByName(ctx context.Context, name string) (core.Participant, error) {
	var p core.Participant
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE name = ?`, name).
		Scan(&p.ID, &p.Name, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Participant{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Participant{}, fmt.Errorf("query user by name: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email FROM users ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []core.Participant
	for rows.Next() {
		var p core.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, p)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) CreateGroup(ctx context.Context, id, name string, createdAt time.Time, members []core.Participant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("group %q: %w", name, ledger.ErrAlreadyExists)
		}
		return fmt.Errorf("insert group: %w", err)
	}

	for i, m := range members {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, position) VALUES (?, ?, ?)`,
			id, m.ID, i)
		if err != nil {
			return fmt.Errorf("insert group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group: %w", err)
	}

	slog.InfoContext(ctx, "Group saved", "id", id, "name", name, "members", len(members))
	return nil
}

func (r *SQLiteRepository) AddGroupMembers(ctx context.Context, groupID string, members []core.Participant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM group_members WHERE group_id = ?`, groupID).
		Scan(&next)
	if err != nil {
		return fmt.Errorf("query member positions: %w", err)
	}

	for _, m := range members {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO group_members (group_id, user_id, position) VALUES (?, ?, ?)`,
			groupID, m.ID, next)
		if err != nil {
			return fmt.Errorf("insert group member: %w", err)
		}
		next++
	}

	return tx.Commit()
}

func (r *SQLiteRepository) GetGroupByName(ctx context.Context, name string) (ledger.GroupRecord, error) {
	var rec ledger.GroupRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM groups WHERE name = ?`, name).
		Scan(&rec.ID, &rec.Name, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.GroupRecord{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.GroupRecord{}, fmt.Errorf("query group by name: %w", err)
	}
	if err := r.loadGroupHistory(ctx, &rec); err != nil {
		return ledger.GroupRecord{}, err
	}
	return rec, nil
}

func (r *SQLiteRepository) ListGroups(ctx context.Context) ([]ledger.GroupRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM groups ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var recs []ledger.GroupRecord
	for rows.Next() {
		var rec ledger.GroupRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range recs {
		if err := r.loadGroupHistory(ctx, &recs[i]); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func (r *SQLiteRepository) loadGroupHistory(ctx context.Context, rec *ledger.GroupRecord) error {
	members, err := r.loadMembers(ctx, rec.ID)
	if err != nil {
		return err
	}
	rec.Members = members

	expenses, err := r.loadExpenses(ctx, rec.ID)
	if err != nil {
		return err
	}
	rec.Expenses = expenses

	settlements, err := r.loadSettlements(ctx, rec.ID)
	if err != nil {
		return err
	}
	rec.Settlements = settlements
	return nil
}

func (r *SQLiteRepository) loadMembers(ctx context.Context, groupID string) ([]core.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email
		 FROM group_members gm JOIN users u ON u.id = gm.user_id
		 WHERE gm.group_id = ? ORDER BY gm.position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	var members []core.Participant
	for rows.Next() {
		var p core.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		members = append(members, p)
	}
	return members, rows.Err()
}

func (r *SQLiteRepository) loadExpenses(ctx context.Context, groupID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.description, e.amount_cents, e.split_kind, e.created_at,
		        u.id, u.name, u.email
		 FROM expenses e JOIN users u ON u.id = e.payer_id
		 WHERE e.group_id = ? ORDER BY e.seq`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var kind string
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount.Cents, &kind, &e.CreatedAt,
			&e.Payer.ID, &e.Payer.Name, &e.Payer.Email); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Kind = core.SplitKind(kind)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range expenses {
		if err := r.loadShares(ctx, &expenses[i]); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

// loadShares fills the expense's participant list and the split-data map
// matching its kind from the expense_shares rows.
func (r *SQLiteRepository) loadShares(ctx context.Context, e *core.Expense) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, s.amount_cents, s.percent, s.weight
		 FROM expense_shares s JOIN users u ON u.id = s.user_id
		 WHERE s.expense_id = ? ORDER BY s.position`, e.ID)
	if err != nil {
		return fmt.Errorf("query expense shares: %w", err)
	}
	defer rows.Close()

	switch e.Kind {
	case core.SplitExact:
		e.ExactAmounts = make(map[string]core.Money)
	case core.SplitPercent:
		e.Percentages = make(map[string]decimal.Decimal)
	case core.SplitShares:
		e.Weights = make(map[string]int64)
	}

	for rows.Next() {
		var p core.Participant
		var cents sql.NullInt64
		var percent sql.NullString
		var weight sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &cents, &percent, &weight); err != nil {
			return fmt.Errorf("scan expense share: %w", err)
		}
		e.Participants = append(e.Participants, p)

		switch e.Kind {
		case core.SplitExact:
			e.ExactAmounts[p.ID] = core.Money{Cents: cents.Int64}
		case core.SplitPercent:
			d, err := decimal.NewFromString(percent.String)
			if err != nil {
				return fmt.Errorf("parse stored percentage %q: %w", percent.String, err)
			}
			e.Percentages[p.ID] = d
		case core.SplitShares:
			e.Weights[p.ID] = weight.Int64
		}
	}
	return rows.Err()
}

func (r *SQLiteRepository) loadSettlements(ctx context.Context, groupID string) ([]ledger.Settlement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.amount_cents, s.created_at,
		        f.id, f.name, f.email,
		        t.id, t.name, t.email
		 FROM settlements s
		 JOIN users f ON f.id = s.from_id
		 JOIN users t ON t.id = s.to_id
		 WHERE s.group_id = ? ORDER BY s.seq`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query settlements: %w", err)
	}
	defer rows.Close()

	var settlements []ledger.Settlement
	for rows.Next() {
		var s ledger.Settlement
		if err := rows.Scan(&s.ID, &s.Amount.Cents, &s.CreatedAt,
			&s.From.ID, &s.From.Name, &s.From.Email,
			&s.To.ID, &s.To.Name, &s.To.Email); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}

func (r *SQLiteRepository) AppendExpense(ctx context.Context, groupID string, e core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "expenses", groupID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, seq, description, amount_cents, payer_id, split_kind, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, groupID, seq, e.Description, e.Amount.Cents, e.Payer.ID, string(e.Kind), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	for i, p := range e.Participants {
		var cents sql.NullInt64
		var percent sql.NullString
		var weight sql.NullInt64
		switch e.Kind {
		case core.SplitExact:
			cents = sql.NullInt64{Int64: e.ExactAmounts[p.ID].Cents, Valid: true}
		case core.SplitPercent:
			percent = sql.NullString{String: e.Percentages[p.ID].String(), Valid: true}
		case core.SplitShares:
			weight = sql.NullInt64{Int64: e.Weights[p.ID], Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_shares (expense_id, user_id, position, amount_cents, percent, weight)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, p.ID, i, cents, percent, weight)
		if err != nil {
			return fmt.Errorf("insert expense share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"group_id", groupID,
		"seq", seq,
		"amount_cents", e.Amount.Cents,
		"kind", string(e.Kind))
	return nil
}

func (r *SQLiteRepository) AppendSettlement(ctx context.Context, groupID string, s ledger.Settlement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "settlements", groupID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, seq, from_id, to_id, amount_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, groupID, seq, s.From.ID, s.To.ID, s.Amount.Cents, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}

	slog.InfoContext(ctx, "Settlement saved",
		"id", s.ID,
		"group_id", groupID,
		"seq", seq,
		"amount_cents", s.Amount.Cents)
	return nil
}

func nextSeq(ctx context.Context, tx *sql.Tx, table, groupID string) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM `+table+` WHERE group_id = ?`, groupID).
		Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next %s seq: %w", table, err)
	}
	return seq, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
