package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain-rule violations are returned as typed errors so callers can match
// with errors.As and build actionable messages from the structured fields.
// None of these are retried inside the engine.

// InsufficientStockError: a consumption or transfer-out would drive on-hand
// negative. The stock position is left untouched.
type InsufficientStockError struct {
	LocationId int
	ItemId     int
	OnHand     decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: location=%d item=%d on_hand=%s requested=%s",
		e.LocationId, e.ItemId, e.OnHand, e.Requested)
}

// PeriodLockedError: a posting was attempted while the location's period is
// not Open (PendingClose, Closed, or no active period at all).
type PeriodLockedError struct {
	PeriodId   int
	LocationId int
	Status     PeriodStatus
}

func (e *PeriodLockedError) Error() string {
	return fmt.Sprintf("period locked: period=%d location=%d status=%s", e.PeriodId, e.LocationId, e.Status)
}

// InvalidLocationPairError: transfer source and destination are identical.
type InvalidLocationPairError struct {
	LocationId int
}

func (e *InvalidLocationPairError) Error() string {
	return fmt.Sprintf("invalid location pair: source and destination are both %d", e.LocationId)
}

// ReconciliationIncompleteError: readiness was requested without a computed
// reconciliation for the (period, location) pair.
type ReconciliationIncompleteError struct {
	PeriodId     int
	LocationId   int
	MissingField string
}

func (e *ReconciliationIncompleteError) Error() string {
	return fmt.Sprintf("reconciliation incomplete: period=%d location=%d missing=%s",
		e.PeriodId, e.LocationId, e.MissingField)
}

// ClosingValueMissingError: the manual closing stock value has not been
// entered, so consumption cannot be derived.
type ClosingValueMissingError struct {
	PeriodId   int
	LocationId int
}

func (e *ClosingValueMissingError) Error() string {
	return fmt.Sprintf("closing value missing: period=%d location=%d", e.PeriodId, e.LocationId)
}

// LocationsNotReadyError: close was requested (or re-validated) while one or
// more locations are still NotReady.
type LocationsNotReadyError struct {
	PeriodId          int
	NotReadyLocations []int
}

func (e *LocationsNotReadyError) Error() string {
	return fmt.Sprintf("locations not ready: period=%d locations=%v", e.PeriodId, e.NotReadyLocations)
}

// ApprovalAlreadyExistsError: a Pending close approval already exists for the
// period.
type ApprovalAlreadyExistsError struct {
	PeriodId   int
	ApprovalId int
}

func (e *ApprovalAlreadyExistsError) Error() string {
	return fmt.Sprintf("approval already exists: period=%d approval=%d", e.PeriodId, e.ApprovalId)
}

// ApprovalNotPendingError: the referenced approval is not in Pending state.
type ApprovalNotPendingError struct {
	ApprovalId int
	Status     ApprovalStatus
}

func (e *ApprovalNotPendingError) Error() string {
	return fmt.Sprintf("approval not pending: approval=%d status=%s", e.ApprovalId, e.Status)
}

// InvalidPeriodTransitionError: a lifecycle call was made against the wrong
// period status (transitions are strictly forward).
type InvalidPeriodTransitionError struct {
	PeriodId int
	From     PeriodStatus
	To       PeriodStatus
}

func (e *InvalidPeriodTransitionError) Error() string {
	return fmt.Sprintf("invalid period transition: period=%d %s -> %s", e.PeriodId, e.From, e.To)
}

// ConcurrentUpdateError: optimistic revision CAS on a stock position kept
// losing to concurrent writers. Safe for the caller to retry.
type ConcurrentUpdateError struct {
	LocationId int
	ItemId     int
	Attempts   int
}

func (e *ConcurrentUpdateError) Error() string {
	return fmt.Sprintf("concurrent update: location=%d item=%d attempts=%d", e.LocationId, e.ItemId, e.Attempts)
}
