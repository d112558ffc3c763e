package errs

import (
	"fmt"

	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

type ErrorMessage struct {
	Message string
}

func (e *ErrorMessage) Error() string { return e.Message }

type NotFoundError struct {
	ErrorMessage
}

type ValidationError struct {
	ErrorMessage
}

type OwnershipError struct {
	ErrorMessage
}

// OverpaymentError carries the outstanding balance so the caller can resubmit
// with a corrected amount or with the full-settlement flag.
type OverpaymentError struct {
	ErrorMessage
	Outstanding money.Money
}

type AlreadySettledError struct {
	ErrorMessage
}

type ReferencedError struct {
	ErrorMessage
}

type DatabaseError struct {
	ErrorMessage
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewOwnershipError(message string) *OwnershipError {
	return &OwnershipError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewOverpaymentError(amount, outstanding money.Money) *OverpaymentError {
	return &OverpaymentError{
		ErrorMessage: ErrorMessage{
			Message: fmt.Sprintf("repayment of %s exceeds outstanding balance %s", amount, outstanding),
		},
		Outstanding: outstanding,
	}
}

func NewAlreadySettledError(creditID string) *AlreadySettledError {
	return &AlreadySettledError{
		ErrorMessage: ErrorMessage{Message: "credit " + creditID + " is already settled"},
	}
}

func NewReferencedError(message string) *ReferencedError {
	return &ReferencedError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewDatabaseError(operation, message string, err error) *DatabaseError {
	return &DatabaseError{
		ErrorMessage: ErrorMessage{Message: message},
		Operation:    operation,
		Err:          err,
	}
}
