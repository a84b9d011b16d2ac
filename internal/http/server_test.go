package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kopilka/internal/core"
	"kopilka/internal/storage"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	transactions map[string]core.Transaction
	payments     map[string]core.RegularPayment
	savings      map[string]core.Saving
	profile      core.UserProfile
	nextID       int

	changes chan storage.Change
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions: make(map[string]core.Transaction),
		payments:     make(map[string]core.RegularPayment),
		savings:      make(map[string]core.Saving),
		changes:      make(chan storage.Change, 16),
	}
}

func (f *fakeStore) genID() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeStore) CreateTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	if tx.ID == "" {
		tx.ID = f.genID()
	}
	f.transactions[tx.ID] = tx
	f.changes <- storage.Change{Kind: storage.KindTransaction, Op: storage.OpCreate, ID: tx.ID}
	return tx.ID, nil
}

func (f *fakeStore) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if _, ok := f.transactions[tx.ID]; !ok {
		return storage.ErrNotFound
	}
	f.transactions[tx.ID] = tx
	return nil
}

func (f *fakeStore) DeleteTransaction(ctx context.Context, id string) error {
	if _, ok := f.transactions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.transactions, id)
	return nil
}

func (f *fakeStore) DeleteAllTransactions(ctx context.Context) error {
	f.transactions = make(map[string]core.Transaction)
	return nil
}

func (f *fakeStore) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (f *fakeStore) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(f.transactions))
	for _, tx := range f.transactions {
		out = append(out, tx)
	}
	return out, nil
}

func (f *fakeStore) CreatePayment(ctx context.Context, p core.RegularPayment) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if p.ID == "" {
		p.ID = f.genID()
	}
	f.payments[p.ID] = p
	return p.ID, nil
}

func (f *fakeStore) UpdatePayment(ctx context.Context, p core.RegularPayment) error {
	if _, ok := f.payments[p.ID]; !ok {
		return storage.ErrNotFound
	}
	f.payments[p.ID] = p
	return nil
}

func (f *fakeStore) DeletePayment(ctx context.Context, id string) error {
	if _, ok := f.payments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.payments, id)
	return nil
}

func (f *fakeStore) GetPayment(ctx context.Context, id string) (core.RegularPayment, error) {
	p, ok := f.payments[id]
	if !ok {
		return core.RegularPayment{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListPayments(ctx context.Context, activeOnly bool) ([]core.RegularPayment, error) {
	out := make([]core.RegularPayment, 0, len(f.payments))
	for _, p := range f.payments {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) MarkPaymentPaid(ctx context.Context, id string, paidAt, nextDue time.Time) error {
	p, ok := f.payments[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.LastPaidAt = &paidAt
	p.NextDueAt = &nextDue
	f.payments[id] = p
	return nil
}

func (f *fakeStore) CreateSaving(ctx context.Context, s core.Saving) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	if s.ID == "" {
		s.ID = f.genID()
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	f.savings[s.ID] = s
	return s.ID, nil
}

func (f *fakeStore) UpdateSaving(ctx context.Context, s core.Saving) error {
	if _, ok := f.savings[s.ID]; !ok {
		return storage.ErrNotFound
	}
	f.savings[s.ID] = s
	return nil
}

func (f *fakeStore) DeleteSaving(ctx context.Context, id string) error {
	if _, ok := f.savings[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.savings, id)
	return nil
}

func (f *fakeStore) GetSaving(ctx context.Context, id string) (core.Saving, error) {
	s, ok := f.savings[id]
	if !ok {
		return core.Saving{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) ListSavings(ctx context.Context, activeOnly bool) ([]core.Saving, error) {
	out := make([]core.Saving, 0, len(f.savings))
	for _, s := range f.savings {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) GetProfile(ctx context.Context) (core.UserProfile, error) {
	return f.profile, nil
}

func (f *fakeStore) SaveProfile(ctx context.Context, profile core.UserProfile) error {
	f.profile = profile
	return nil
}

func (f *fakeStore) Watch(kind storage.EntityKind) (<-chan storage.Change, func()) {
	return f.changes, func() { close(f.changes) }
}

func newTestServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	srv := NewServer(":0", store, Options{WeekStart: time.Monday})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateTransaction(t *testing.T) {
	srv, store := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"type":     "expense",
		"category": "Продукты",
		"amount":   "1234.56",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body)
	}

	var got transactionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Amount != "1234.56" {
		t.Errorf("amount = %q, want %q", got.Amount, "1234.56")
	}
	if got.ID == "" {
		t.Error("expected generated id")
	}
	if len(store.transactions) != 1 {
		t.Errorf("stored %d transactions, want 1", len(store.transactions))
	}
}

func TestCreateTransactionRejectsBadAmount(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"type":     "expense",
		"category": "Продукты",
		"amount":   "abc",
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestCreateTransactionRejectsBadType(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"type":     "loan",
		"category": "Продукты",
		"amount":   "10.00",
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/transactions/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDeleteAllRequiresConfirm(t *testing.T) {
	srv, store := newTestServer(t)
	store.transactions["a"] = core.Transaction{ID: "a"}

	rec := doJSON(t, srv, http.MethodDelete, "/api/transactions", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if len(store.transactions) != 1 {
		t.Error("transactions deleted without confirmation")
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/transactions?confirm=true", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if len(store.transactions) != 0 {
		t.Error("expected all transactions deleted")
	}
}

func TestMarkPaymentPaid(t *testing.T) {
	srv, store := newTestServer(t)
	store.payments["p1"] = core.RegularPayment{
		ID:         "p1",
		Name:       "Аренда",
		Category:   "Жильё",
		Amount:     core.Money{Cents: 3500000},
		DayOfMonth: 15,
		IsActive:   true,
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/payments/p1/paid", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body)
	}

	p := store.payments["p1"]
	if p.LastPaidAt == nil || p.NextDueAt == nil {
		t.Fatal("expected both paid timestamps set")
	}
	if !p.NextDueAt.After(*p.LastPaidAt) {
		t.Errorf("next due %v not after paid at %v", p.NextDueAt, p.LastPaidAt)
	}

	var got paymentJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != "paid" {
		t.Errorf("status = %q, want %q", got.Status, "paid")
	}
}

func TestDuePayments(t *testing.T) {
	srv, store := newTestServer(t)
	today := time.Now().Day()
	if today > 28 {
		t.Skip("month-end days make due buckets ambiguous")
	}
	store.payments["due"] = core.RegularPayment{
		ID: "due", Name: "Интернет", Category: "Связь",
		Amount: core.Money{Cents: 50000}, DayOfMonth: today, IsActive: true,
	}
	store.payments["inactive"] = core.RegularPayment{
		ID: "inactive", Name: "Спортзал", Category: "Спорт",
		Amount: core.Money{Cents: 200000}, DayOfMonth: today, IsActive: false,
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/payments/due", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var got struct {
		Due     []paymentJSON `json:"due"`
		Overdue []paymentJSON `json:"overdue"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Due) != 1 || got.Due[0].ID != "due" {
		t.Errorf("due = %+v, want the single active payment", got.Due)
	}
	if len(got.Overdue) != 0 {
		t.Errorf("overdue = %+v, want empty", got.Overdue)
	}
}

func TestSavingTargetReached(t *testing.T) {
	srv, _ := newTestServer(t)

	target := "100.00"
	rec := doJSON(t, srv, http.MethodPost, "/api/savings", map[string]any{
		"name":          "Отпуск",
		"category":      "Накопления",
		"amount":        "150.00",
		"target_amount": target,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var got savingJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.TargetReached {
		t.Error("expected target_reached = true")
	}
}

func TestProfileRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/api/profile", map[string]any{
		"dependents":   2,
		"tags":         []string{"employed", "has_mortgage"},
		"muted_advice": []string{"save_share"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/profile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got profileJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Dependents != 2 || len(got.Tags) != 2 || len(got.MutedAdvice) != 1 {
		t.Errorf("profile = %+v", got)
	}
}

func TestProfileRejectsNegativeDependents(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/api/profile", map[string]any{
		"dependents": -1,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestStatsSummary(t *testing.T) {
	srv, store := newTestServer(t)
	now := time.Now()
	store.transactions["i"] = core.Transaction{
		ID: "i", Type: core.Income, Category: "Зарплата",
		Amount: core.Money{Cents: 100000}, OccurredAt: now,
	}
	store.transactions["e"] = core.Transaction{
		ID: "e", Type: core.Expense, Category: "Продукты",
		Amount: core.Money{Cents: 40000}, OccurredAt: now,
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/stats/summary?period=month", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var got summaryJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Income != "1000.00" {
		t.Errorf("income = %q, want %q", got.Income, "1000.00")
	}
	if got.Expense != "400.00" {
		t.Errorf("expense = %q, want %q", got.Expense, "400.00")
	}
	if got.Balance != "600.00" {
		t.Errorf("balance = %q, want %q", got.Balance, "600.00")
	}
}

func TestAdviceWithoutHistory(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/advice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got adviceJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Kind != "add_history" {
		t.Errorf("kind = %q, want %q", got.Kind, "add_history")
	}
}

func TestCSVExportImportRoundTrip(t *testing.T) {
	srv, store := newTestServer(t)
	store.transactions["t1"] = core.Transaction{
		ID: "t1", Type: core.Income, Category: "Зарплата",
		Amount:     core.Money{Cents: 500000},
		OccurredAt: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/export/csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if !strings.Contains(rec.Body.String(), "Доход") {
		t.Errorf("export body missing localized type label: %s", rec.Body)
	}

	// Import into an empty store.
	srv2, store2 := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import/csv", strings.NewReader(rec.Body.String()))
	rec2 := httptest.NewRecorder()
	srv2.Server.Handler.ServeHTTP(rec2, req)

	if rec2.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec2.Code, rec2.Body)
	}

	var result importResultJSON
	if err := json.Unmarshal(rec2.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 0 {
		t.Errorf("result = %+v, want 1 imported, 0 skipped", result)
	}
	if len(store2.transactions) != 1 {
		t.Errorf("stored %d transactions after import, want 1", len(store2.transactions))
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
