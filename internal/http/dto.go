package http

import (
	"fmt"
	"time"

	"kopilka/internal/core"
	"kopilka/internal/services"
)

// Amounts cross the wire as decimal strings ("1234.56") so clients never
// deal in cents and floats never touch money.

type transactionJSON struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type transactionRequest struct {
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Amount      string     `json:"amount"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Category:    tx.Category,
		Amount:      tx.Amount.Decimal(),
		Description: tx.Description,
		OccurredAt:  tx.OccurredAt,
	}
}

func toTransactionList(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx))
	}
	return out
}

func (req transactionRequest) toDomain(id string) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount: %w", err)
	}
	occurred := time.Now()
	if req.OccurredAt != nil {
		occurred = *req.OccurredAt
	}
	return core.Transaction{
		ID:          id,
		Type:        core.TransactionType(req.Type),
		Category:    req.Category,
		Amount:      core.Money{Cents: cents},
		Description: req.Description,
		OccurredAt:  occurred,
	}, nil
}

type paymentJSON struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Category           string     `json:"category"`
	Amount             string     `json:"amount"`
	DayOfMonth         int        `json:"day_of_month"`
	ReminderDaysBefore int        `json:"reminder_days_before"`
	IsActive           bool       `json:"is_active"`
	Description        string     `json:"description,omitempty"`
	LastPaidAt         *time.Time `json:"last_paid_at,omitempty"`
	NextDueAt          *time.Time `json:"next_due_at,omitempty"`
	Status             string     `json:"status"`
}

type paymentRequest struct {
	Name               string `json:"name"`
	Category           string `json:"category"`
	Amount             string `json:"amount"`
	DayOfMonth         int    `json:"day_of_month"`
	ReminderDaysBefore int    `json:"reminder_days_before"`
	IsActive           *bool  `json:"is_active"`
	Description        string `json:"description"`
}

func toPaymentJSON(p core.RegularPayment, now time.Time) paymentJSON {
	return paymentJSON{
		ID:                 p.ID,
		Name:               p.Name,
		Category:           p.Category,
		Amount:             p.Amount.Decimal(),
		DayOfMonth:         p.DayOfMonth,
		ReminderDaysBefore: p.ReminderDaysBefore,
		IsActive:           p.IsActive,
		Description:        p.Description,
		LastPaidAt:         p.LastPaidAt,
		NextDueAt:          p.NextDueAt,
		Status:             string(services.PaymentStatusOn(p, now)),
	}
}

func toPaymentList(payments []core.RegularPayment, now time.Time) []paymentJSON {
	out := make([]paymentJSON, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentJSON(p, now))
	}
	return out
}

func (req paymentRequest) toDomain(id string, existing *core.RegularPayment) (core.RegularPayment, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.RegularPayment{}, fmt.Errorf("parse amount: %w", err)
	}
	p := core.RegularPayment{
		ID:                 id,
		Name:               req.Name,
		Category:           req.Category,
		Amount:             core.Money{Cents: cents},
		DayOfMonth:         req.DayOfMonth,
		ReminderDaysBefore: req.ReminderDaysBefore,
		IsActive:           true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.Description = req.Description
	// Paid timestamps are owned by the paid lifecycle, not by edits.
	if existing != nil {
		p.LastPaidAt = existing.LastPaidAt
		p.NextDueAt = existing.NextDueAt
	}
	return p, nil
}

type savingJSON struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency,omitempty"`
	Note          string    `json:"note,omitempty"`
	TargetAmount  *string   `json:"target_amount,omitempty"`
	IsActive      bool      `json:"is_active"`
	TargetReached bool      `json:"target_reached"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type savingRequest struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Amount       string  `json:"amount"`
	Currency     string  `json:"currency"`
	Note         string  `json:"note"`
	TargetAmount *string `json:"target_amount"`
	IsActive     *bool   `json:"is_active"`
}

func toSavingJSON(s core.Saving) savingJSON {
	out := savingJSON{
		ID:            s.ID,
		Name:          s.Name,
		Category:      s.Category,
		Amount:        s.Amount.Decimal(),
		Currency:      s.Currency,
		Note:          s.Note,
		IsActive:      s.IsActive,
		TargetReached: s.TargetReached(),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.TargetAmount != nil {
		target := s.TargetAmount.Decimal()
		out.TargetAmount = &target
	}
	return out
}

func toSavingList(savings []core.Saving) []savingJSON {
	out := make([]savingJSON, 0, len(savings))
	for _, s := range savings {
		out = append(out, toSavingJSON(s))
	}
	return out
}

func (req savingRequest) toDomain(id string, existing *core.Saving) (core.Saving, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Saving{}, fmt.Errorf("parse amount: %w", err)
	}
	s := core.Saving{
		ID:       id,
		Name:     req.Name,
		Category: req.Category,
		Amount:   core.Money{Cents: cents},
		Currency: req.Currency,
		Note:     req.Note,
		IsActive: true,
	}
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}
	if req.TargetAmount != nil {
		target, err := core.ParseDecimalToCents(*req.TargetAmount)
		if err != nil {
			return core.Saving{}, fmt.Errorf("parse target amount: %w", err)
		}
		s.TargetAmount = &core.Money{Cents: target}
	}
	if existing != nil {
		s.CreatedAt = existing.CreatedAt
	}
	return s, nil
}

type profileJSON struct {
	Dependents  int      `json:"dependents"`
	Tags        []string `json:"tags"`
	MutedAdvice []string `json:"muted_advice"`
}

func toProfileJSON(p core.UserProfile) profileJSON {
	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, string(t))
	}
	muted := p.MutedAdvice
	if muted == nil {
		muted = []string{}
	}
	return profileJSON{
		Dependents:  p.Dependents,
		Tags:        tags,
		MutedAdvice: muted,
	}
}

func (p profileJSON) toDomain() core.UserProfile {
	tags := make([]core.ProfileTag, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, core.ProfileTag(t))
	}
	return core.UserProfile{
		Dependents:  p.Dependents,
		Tags:        tags,
		MutedAdvice: p.MutedAdvice,
	}
}
