// Package rejection defines the closed set of reasons a draft or free agency
// operation can be refused for. Anything that is not a *Error is an
// infrastructure failure and is safe to retry.
package rejection

import (
	"errors"
	"fmt"
)

// Reason identifies why an operation was refused.
type Reason string

const (
	// turn
	NotYourTurn          Reason = "NotYourTurn"
	SessionNotActive     Reason = "SessionNotActive"
	SessionAlreadyActive Reason = "SessionAlreadyActive"
	DraftNotCompleted    Reason = "DraftNotCompleted"
	BidTooLow            Reason = "BidTooLow"

	// pool
	AssetUnavailable Reason = "AssetUnavailable"
	AlreadyDrafted   Reason = "AlreadyDrafted"
	AssetNotOnRoster Reason = "AssetNotOnRoster"

	// ledger
	BudgetExceeded          Reason = "BudgetExceeded"
	RosterFull              Reason = "RosterFull"
	RosterBelowMinimum      Reason = "RosterBelowMinimum"
	TransactionLimitReached Reason = "TransactionLimitReached"
	DeadlinePassed          Reason = "DeadlinePassed"

	// fatal
	InvariantViolation Reason = "InvariantViolation"
)

// Category groups reasons by how a caller is expected to react.
type Category string

const (
	CategoryTurn   Category = "turn"   // refresh state, then retry or no-op
	CategoryPool   Category = "pool"   // refresh the pool view
	CategoryLedger Category = "ledger" // show to the user, do not retry
	CategoryFatal  Category = "fatal"  // session halted until an admin steps in
)

var categories = map[Reason]Category{
	NotYourTurn:             CategoryTurn,
	SessionNotActive:        CategoryTurn,
	SessionAlreadyActive:    CategoryTurn,
	DraftNotCompleted:       CategoryTurn,
	BidTooLow:               CategoryTurn,
	AssetUnavailable:        CategoryPool,
	AlreadyDrafted:          CategoryPool,
	AssetNotOnRoster:        CategoryPool,
	BudgetExceeded:          CategoryLedger,
	RosterFull:              CategoryLedger,
	RosterBelowMinimum:      CategoryLedger,
	TransactionLimitReached: CategoryLedger,
	DeadlinePassed:          CategoryLedger,
	InvariantViolation:      CategoryFatal,
}

// Reasons lists every known reason.
func Reasons() []Reason {
	out := make([]Reason, 0, len(categories))
	for r := range categories {
		out = append(out, r)
	}
	return out
}

// Parse maps a wire string back to a Reason.
func Parse(s string) (Reason, bool) {
	r := Reason(s)
	_, ok := categories[r]
	return r, ok
}

// Category returns the reason's category.
func (r Reason) Category() Category {
	return categories[r]
}

// Error is a typed refusal.
type Error struct {
	Reason Reason
	Detail string
}

// New returns a refusal carrying a formatted detail message.
func New(reason Reason, format string, args ...any) *Error {
	return &Error{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Is matches any *Error with the same reason, so the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Reason == e.Reason
}

// Category returns the category of the underlying reason.
func (e *Error) Category() Category {
	return e.Reason.Category()
}

// Sentinels for errors.Is.
var (
	ErrNotYourTurn             = &Error{Reason: NotYourTurn}
	ErrSessionNotActive        = &Error{Reason: SessionNotActive}
	ErrSessionAlreadyActive    = &Error{Reason: SessionAlreadyActive}
	ErrDraftNotCompleted       = &Error{Reason: DraftNotCompleted}
	ErrBidTooLow               = &Error{Reason: BidTooLow}
	ErrAssetUnavailable        = &Error{Reason: AssetUnavailable}
	ErrAlreadyDrafted          = &Error{Reason: AlreadyDrafted}
	ErrAssetNotOnRoster        = &Error{Reason: AssetNotOnRoster}
	ErrBudgetExceeded          = &Error{Reason: BudgetExceeded}
	ErrRosterFull              = &Error{Reason: RosterFull}
	ErrRosterBelowMinimum      = &Error{Reason: RosterBelowMinimum}
	ErrTransactionLimitReached = &Error{Reason: TransactionLimitReached}
	ErrDeadlinePassed          = &Error{Reason: DeadlinePassed}
	ErrInvariantViolation      = &Error{Reason: InvariantViolation}
)

// ReasonOf extracts the reason from err, if it is a refusal.
func ReasonOf(err error) (Reason, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason, true
	}
	return "", false
}

// IsRejection reports whether err is a typed refusal rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	_, ok := ReasonOf(err)
	return ok
}

// ErrValidation marks malformed requests. It is not a Reason: the request
// never reached the rules.
var ErrValidation = errors.New("validation failed")

// Invalid wraps err as a validation failure.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
