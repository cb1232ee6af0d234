package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
	"splitledger/internal/ledger"
)

type errorResponse struct {
	Error string `json:"error"`
}

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type groupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type expenseRequest struct {
	Kind         string            `json:"kind"`
	Description  string            `json:"description"`
	Amount       string            `json:"amount"`
	Payer        string            `json:"payer"`
	Participants []string          `json:"participants,omitempty"`
	ExactAmounts map[string]string `json:"exactAmounts,omitempty"`
	Percentages  map[string]string `json:"percentages,omitempty"`
	Weights      map[string]int64  `json:"weights,omitempty"`
}

type expenseResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Payer       string `json:"payer"`
	Kind        string `json:"kind"`
}

type settlementRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type settlementResponse struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type groupResponse struct {
	Name     string            `json:"name"`
	Members  []string          `json:"members"`
	Expenses []expenseResponse `json:"expenses"`
}

type balanceEntry struct {
	Name    string `json:"name"`
	Balance string `json:"balance"`
}

type debtsResponse struct {
	Debts []string `json:"debts"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes: split/amount validation to
// 422, unknown entities to 404, duplicate names to 409.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyDescription):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "name is required"})
		return
	}

	p, err := s.svc.AddUser(r.Context(), req.Name, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: p.ID, Name: p.Name, Email: p.Email})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "name is required"})
		return
	}

	g, err := s.svc.CreateGroup(r.Context(), req.Name, req.Members)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(g))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.ListGroups(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, toGroupResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.GetGroup(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(g))
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	groupName := r.PathValue("name")
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in, err := toExpenseInput(req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	e, err := s.svc.AddExpense(r.Context(), groupName, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateGroup(groupName)
	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

func (s *Server) handleRecordSettlement(w http.ResponseWriter, r *http.Request) {
	groupName := r.PathValue("name")
	var req settlementRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stl, err := s.svc.RecordSettlement(r.Context(), groupName, req.From, req.To, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateGroup(groupName)
	writeJSON(w, http.StatusCreated, settlementResponse{
		ID:     stl.ID,
		From:   stl.From.Name,
		To:     stl.To.Name,
		Amount: stl.Amount.String(),
	})
}

func (s *Server) handleDebts(w http.ResponseWriter, r *http.Request) {
	groupName := r.PathValue("name")

	if debts, found := s.debtsCache.Get(groupName); found {
		slog.DebugContext(r.Context(), "Debts cache hit", "group", groupName)
		writeJSON(w, http.StatusOK, debtsResponse{Debts: debts})
		return
	}

	debts, err := s.svc.Debts(r.Context(), groupName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if debts == nil {
		debts = []string{}
	}

	s.debtsCache.Set(groupName, debts)
	writeJSON(w, http.StatusOK, debtsResponse{Debts: debts})
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	groupName := r.PathValue("name")

	if entries, found := s.balancesCache.Get(groupName); found {
		slog.DebugContext(r.Context(), "Balances cache hit", "group", groupName)
		writeJSON(w, http.StatusOK, entries)
		return
	}

	balances, err := s.svc.Balances(r.Context(), groupName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries := make([]balanceEntry, 0, len(balances))
	for _, b := range balances {
		entries = append(entries, balanceEntry{Name: b.Member.Name, Balance: b.Net.String()})
	}

	s.balancesCache.Set(groupName, entries)
	writeJSON(w, http.StatusOK, entries)
}

func toExpenseInput(req expenseRequest) (ledger.ExpenseInput, error) {
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		return ledger.ExpenseInput{}, err
	}

	in := ledger.ExpenseInput{
		Kind:         core.SplitKind(req.Kind),
		Description:  req.Description,
		Amount:       amount,
		Payer:        req.Payer,
		Participants: req.Participants,
		Weights:      req.Weights,
	}
	if !in.Kind.IsValid() {
		return ledger.ExpenseInput{}, &core.ValidationError{Reason: "unknown split kind " + req.Kind}
	}

	if len(req.ExactAmounts) > 0 {
		in.ExactAmounts = make(map[string]core.Money, len(req.ExactAmounts))
		for name, v := range req.ExactAmounts {
			m, err := core.ParseMoney(v)
			if err != nil {
				return ledger.ExpenseInput{}, err
			}
			in.ExactAmounts[name] = m
		}
	}
	if len(req.Percentages) > 0 {
		in.Percentages = make(map[string]decimal.Decimal, len(req.Percentages))
		for name, v := range req.Percentages {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return ledger.ExpenseInput{}, &core.ValidationError{Reason: "invalid percentage " + v}
			}
			in.Percentages[name] = d
		}
	}
	return in, nil
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Payer:       e.Payer.Name,
		Kind:        string(e.Kind),
	}
}

func toGroupResponse(g *core.Group) groupResponse {
	members := g.Members()
	out := groupResponse{
		Name:     g.Name,
		Members:  make([]string, 0, len(members)),
		Expenses: make([]expenseResponse, 0),
	}
	for _, m := range members {
		out.Members = append(out.Members, m.Name)
	}
	for _, e := range g.Expenses() {
		out.Expenses = append(out.Expenses, toExpenseResponse(e))
	}
	return out
}
