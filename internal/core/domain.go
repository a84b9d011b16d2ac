package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	SavingTx TransactionType = "saving"
)

// Profile tags, a flat set instead of one boolean column per flag.
const (
	TagEmployed      ProfileTag = "employed"
	TagSelfEmployed  ProfileTag = "self_employed"
	TagStudent       ProfileTag = "student"
	TagRetired       ProfileTag = "retired"
	TagHasMortgage   ProfileTag = "has_mortgage"
	TagHasCarLoan    ProfileTag = "has_car_loan"
	TagRentsHousing  ProfileTag = "rents_housing"
	TagHasDependents ProfileTag = "has_dependents"
)

type (
	TransactionType string

	ProfileTag string

	Money struct {
		Cents int64
	}

	// Transaction is an immutable-once-created ledger record. Edits replace
	// the whole record, the engines only ever read snapshots.
	Transaction struct {
		ID          string
		Type        TransactionType
		Category    string
		Amount      Money
		Description string
		OccurredAt  time.Time
	}

	// RegularPayment is a monthly bill due on DayOfMonth. When DayOfMonth
	// does not exist in a month the payment is due on that month's last day.
	RegularPayment struct {
		ID                 string
		Name               string
		Category           string
		Amount             Money
		DayOfMonth         int
		ReminderDaysBefore int
		IsActive           bool
		Description        string
		LastPaidAt         *time.Time
		NextDueAt          *time.Time
	}

	// Saving is a savings goal. Currency is a display tag, never converted.
	Saving struct {
		ID           string
		Name         string
		Category     string
		Amount       Money
		Currency     string
		Note         string
		TargetAmount *Money
		IsActive     bool
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// UserProfile is a singleton record used only to contextualize advice.
	UserProfile struct {
		Dependents  int
		Tags        []ProfileTag
		MutedAdvice []string
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidDayOfMonth = errors.New("day of month must be between 1 and 31")
	ErrInvalidReminder   = errors.New("reminder days must be between 0 and 30")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyCategory     = errors.New("empty category")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense, SavingTx:
		return nil
	default:
		return ErrInvalidType
	}
}

func (tx Transaction) Validate() error {
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	if tx.OccurredAt.IsZero() {
		return errors.New("transaction date cannot be zero")
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (p RegularPayment) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(p.Category) == "" {
		return ErrEmptyCategory
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.DayOfMonth < 1 || p.DayOfMonth > 31 {
		return ErrInvalidDayOfMonth
	}
	if p.ReminderDaysBefore < 0 || p.ReminderDaysBefore > 30 {
		return ErrInvalidReminder
	}
	if len(p.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (s Saving) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(s.Category) == "" {
		return ErrEmptyCategory
	}
	// Zero balance is fine for a fresh goal, negative is not.
	if s.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if s.TargetAmount != nil {
		if err := s.TargetAmount.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TargetReached reports whether the goal has been met. Goals without a
// target are never "reached".
func (s Saving) TargetReached() bool {
	return s.TargetAmount != nil && s.Amount.Cents >= s.TargetAmount.Cents
}

// HasTag reports membership in the profile's tag set.
func (u UserProfile) HasTag(tag ProfileTag) bool {
	for _, t := range u.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AdviceMuted reports whether the user switched off an advice kind.
func (u UserProfile) AdviceMuted(kind string) bool {
	for _, k := range u.MutedAdvice {
		if k == kind {
			return true
		}
	}
	return false
}
