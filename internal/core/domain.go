package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	DefaultNamespace CategoryNamespace = "default"
	CustomNamespace  CategoryNamespace = "custom"
)

// UncategorizedName is shown for transactions without a category reference.
const UncategorizedName = "Uncategorized"

const maxDescriptionLen = 200

type (
	Frequency         string
	Kind              string
	CategoryNamespace string

	// Date is a calendar date anchored at UTC midnight.
	Date struct {
		time.Time
	}

	// CategoryRef points into one of the two disjoint category tables.
	// An ID is only unique within its namespace. The zero value means
	// uncategorized.
	CategoryRef struct {
		Namespace CategoryNamespace
		ID        int64
	}

	Transaction struct {
		ID          string
		Owner       int64
		Kind        Kind
		Amount      Money
		Category    CategoryRef
		Description string
		Timestamp   time.Time // UTC
		RecurringID int64     // originating definition, 0 for user entries
	}

	RecurringDefinition struct {
		ID          int64
		Owner       int64
		Kind        Kind
		Amount      Money
		Description string
		Category    CategoryRef
		Frequency   Frequency
		StartDate   Date
		EndDate     Date // zero = open-ended
	}

	Budget struct {
		Owner    int64
		Period   string // YYYY-MM
		Amount   Money
		Category CategoryRef // zero = overall budget
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = errors.New("description too long (max 200 characters)")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEndBeforeStart   = errors.New("end date must not be before start date")
	ErrUnknownNamespace = errors.New("unknown category namespace")
	ErrInvalidOwner     = errors.New("invalid owner")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (used for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Before reports whether d is an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is a later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// DaysSince returns the number of calendar days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.Time.Sub(other.Time).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, k)
	}
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, f)
	}
}

// DefaultCategory references a shared category.
func DefaultCategory(id int64) CategoryRef {
	return CategoryRef{Namespace: DefaultNamespace, ID: id}
}

// CustomCategory references a category created by an owner.
func CustomCategory(id int64) CategoryRef {
	return CategoryRef{Namespace: CustomNamespace, ID: id}
}

func (r CategoryRef) IsZero() bool {
	return r.Namespace == "" && r.ID == 0
}

func (r CategoryRef) Validate() error {
	if r.IsZero() {
		return nil
	}
	switch r.Namespace {
	case DefaultNamespace, CustomNamespace:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, r.Namespace)
	}
}

func (r CategoryRef) String() string {
	if r.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s:%d", r.Namespace, r.ID)
}

// ParseNamespace maps a stored discriminator back to a namespace.
func ParseNamespace(s string) (CategoryNamespace, error) {
	switch ns := CategoryNamespace(s); ns {
	case DefaultNamespace, CustomNamespace:
		return ns, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNamespace, s)
	}
}

func validateDescription(s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return ErrEmptyDescription
	}
	if len(s) > maxDescriptionLen {
		return ErrLongDescription
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Owner == 0 {
		return ErrInvalidOwner
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	return t.Category.Validate()
}

func (rd RecurringDefinition) Validate() error {
	if rd.Owner == 0 {
		return ErrInvalidOwner
	}
	if rd.StartDate.IsZero() {
		return fmt.Errorf("%w: missing start date", ErrInvalidDate)
	}
	if !rd.EndDate.IsEmpty() && rd.EndDate.Before(rd.StartDate) {
		return ErrEndBeforeStart
	}
	if err := rd.Frequency.Validate(); err != nil {
		return err
	}
	if err := rd.Kind.Validate(); err != nil {
		return err
	}
	if err := rd.Amount.Validate(); err != nil {
		return err
	}
	if err := validateDescription(rd.Description); err != nil {
		return err
	}
	return rd.Category.Validate()
}

// Active reports whether the definition's date window contains day.
func (rd RecurringDefinition) Active(day Date) bool {
	if day.Before(rd.StartDate) {
		return false
	}
	if !rd.EndDate.IsEmpty() && day.After(rd.EndDate) {
		return false
	}
	return true
}

func (b Budget) Validate() error {
	if b.Owner == 0 {
		return ErrInvalidOwner
	}
	if _, err := time.Parse("2006-01", b.Period); err != nil || len(b.Period) != 7 {
		return fmt.Errorf("%w: budget period %q", ErrInvalidDate, b.Period)
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	return b.Category.Validate()
}
