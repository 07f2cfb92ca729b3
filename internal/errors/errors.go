// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transports.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// UnsupportedOperatorError is returned when a rule uses an operator outside
// the supported comparison set.
type UnsupportedOperatorError struct {
	Operator string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %q", e.Operator)
}

func NewUnsupportedOperator(op string) error {
	return &UnsupportedOperatorError{Operator: op}
}

// InvalidLiteralError is returned when a rule value cannot be coerced to the
// type of its field.
type InvalidLiteralError struct {
	Field string
	Value any
	Err   error
}

func (e *InvalidLiteralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid literal %v for field %s: %v", e.Value, e.Field, e.Err)
	}
	return fmt.Sprintf("invalid literal %v for field %s", e.Value, e.Field)
}

func (e *InvalidLiteralError) Unwrap() error { return e.Err }

func NewInvalidLiteral(field string, value any, err error) error {
	return &InvalidLiteralError{Field: field, Value: value, Err: err}
}

// InvalidRuleError covers rule shape problems: unknown fields and combinators.
type InvalidRuleError struct {
	Field  string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule on field %q: %s", e.Field, e.Reason)
}

func NewInvalidRule(field, reason string) error {
	return &InvalidRuleError{Field: field, Reason: reason}
}

// InvalidArgumentError is a caller-correctable request parameter problem.
type InvalidArgumentError struct {
	Name   string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Name, e.Reason)
}

func NewInvalidArgument(name, reason string) error {
	return &InvalidArgumentError{Name: name, Reason: reason}
}

type GroupNotFoundError struct {
	GroupID int64
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("audience group with ID %d not found", e.GroupID)
}

func NewGroupNotFound(id int64) error {
	return &GroupNotFoundError{GroupID: id}
}

type CampaignNotFoundError struct {
	CampaignID int64
}

func (e *CampaignNotFoundError) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

func NewCampaignNotFound(id int64) error {
	return &CampaignNotFoundError{CampaignID: id}
}

type CustomerNotFoundError struct {
	CustomerID int64
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("customer with ID %d not found", e.CustomerID)
}

func NewCustomerNotFound(id int64) error {
	return &CustomerNotFoundError{CustomerID: id}
}

type LogNotFoundError struct {
	LogID int64
}

func (e *LogNotFoundError) Error() string {
	return fmt.Sprintf("delivery log with ID %d not found", e.LogID)
}

func NewLogNotFound(id int64) error {
	return &LogNotFoundError{LogID: id}
}

// EnqueueFailure records one recipient whose task could not be handed to the
// outbound channel. DeliveryLogID is zero when the log row itself was not
// persisted.
type EnqueueFailure struct {
	DeliveryLogID int64
	CustomerID    int64
	Err           error
}

func (e *EnqueueFailure) Error() string {
	return fmt.Sprintf("enqueue delivery for customer %d (log %d): %v", e.CustomerID, e.DeliveryLogID, e.Err)
}

func (e *EnqueueFailure) Unwrap() error { return e.Err }

// KindOf maps an error (possibly wrapped) to its Kind.
func KindOf(err error) Kind {
	var (
		unsupportedOp *UnsupportedOperatorError
		invalidLit    *InvalidLiteralError
		invalidRule   *InvalidRuleError
		invalidArg    *InvalidArgumentError
		groupNF       *GroupNotFoundError
		campaignNF    *CampaignNotFoundError
		customerNF    *CustomerNotFoundError
		logNF         *LogNotFoundError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unsupportedOp), errors.As(err, &invalidLit),
		errors.As(err, &invalidRule), errors.As(err, &invalidArg):
		return KindValidation
	case errors.As(err, &groupNF), errors.As(err, &campaignNF),
		errors.As(err, &customerNF), errors.As(err, &logNF):
		return KindNotFound
	default:
		return KindInternal
	}
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
