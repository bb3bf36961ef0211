package domain

import "fmt"

// The error taxonomy below is terminal for the current planning call. Errors
// are detected at the earliest possible stage and returned as structured
// results; nothing is retried inside the engine.

// MissingPriceError indicates a held symbol has no quote in the snapshot.
type MissingPriceError struct {
	Symbol string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no price quote for symbol %s", e.Symbol)
}

// EmptyPortfolioError indicates the total portfolio value is zero, so there
// is no basis for percentage-based trades.
type EmptyPortfolioError struct{}

func (e *EmptyPortfolioError) Error() string {
	return "portfolio has zero total value"
}

// InvalidPortfolioError indicates the portfolio breaks a structural
// invariant (duplicate symbols, negative quantities).
type InvalidPortfolioError struct {
	Reason string
}

func (e *InvalidPortfolioError) Error() string {
	return "invalid portfolio: " + e.Reason
}

// InvalidTargetError indicates the target allocation is malformed.
type InvalidTargetError struct {
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return "invalid target allocation: " + e.Reason
}

// UnallocatableCategoryError indicates a target category has positive weight
// but no eligible member symbol in the portfolio.
type UnallocatableCategoryError struct {
	Category string
}

func (e *UnallocatableCategoryError) Error() string {
	return fmt.Sprintf("category %s has a positive target weight but no eligible symbols", e.Category)
}

// InvalidConstraintError indicates constraints are out of bounds.
type InvalidConstraintError struct {
	Reason string
}

func (e *InvalidConstraintError) Error() string {
	return "invalid constraints: " + e.Reason
}
