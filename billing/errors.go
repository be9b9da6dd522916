/*
errors.go - Centralized error types for the billing domain

PURPOSE:
  All error types in one place for consistency and discoverability.
  Store implementations return these sentinels; the API layer maps them
  to status codes with the helpers at the bottom.

SEE ALSO:
  - bookkeeper.go: Wraps these with operation context
  - api/handlers.go: Maps them to HTTP responses
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTenantNotFound is returned when a referenced tenant doesn't exist.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrPropertyNotFound is returned when a referenced property doesn't exist.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrUnitNotFound is returned when a property has no unit of that name.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrPaymentNotFound is returned when a referenced payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInvalidAmount is returned for non-positive payment amounts.
	ErrInvalidAmount = errors.New("payment amount must be positive")

	// ErrPaymentNotPending is returned when confirming or voiding a payment
	// that already settled. Paid rows are immutable history.
	ErrPaymentNotPending = errors.New("payment is not pending")

	// ErrDuplicateUnit is returned when adding a unit name that already
	// exists in the property. Unit names are the join key to tenants and
	// must stay unique within a property.
	ErrDuplicateUnit = errors.New("unit name already exists in property")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// OccupancyConflict reports a unit claimed by more than one active tenant.
// The breakdown and arrears computations pick the first claimant in input
// order; the audit surfaces the conflict so an operator can fix the data.
type OccupancyConflict struct {
	Key     UnitKey
	Tenants []TenantID
}

func (e *OccupancyConflict) Error() string {
	return fmt.Sprintf("unit %s/%s claimed by %d active tenants",
		e.Key.PropertyID, e.Key.UnitName, len(e.Tenants))
}

// PaymentStateError reports an invalid lifecycle transition.
type PaymentStateError struct {
	ID     PaymentID
	Status PaymentStatus
}

func (e *PaymentStateError) Error() string {
	return fmt.Sprintf("payment %s is %s, not pending", e.ID, e.Status)
}

func (e *PaymentStateError) Unwrap() error { return ErrPaymentNotPending }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrPropertyNotFound) ||
		errors.Is(err, ErrUnitNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrPaymentNotPending) ||
		errors.Is(err, ErrDuplicateUnit)
}
