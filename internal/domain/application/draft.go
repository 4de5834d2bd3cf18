package application

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/procurehub/portal-client/internal/domain/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Draft is a bid as it comes out of a form, amount still in string form.
type Draft struct {
	Amount  string `validate:"required"`
	Message string `validate:"omitempty,max=2000"`
}

// Validate checks the draft before submission.
func (d Draft) Validate() error {
	if err := validate.Struct(d); err != nil {
		return errors.NewValidationError("INVALID_APPLICATION", err.Error()).WithCause(err)
	}
	return nil
}

// Normalize converts the form amount into the typed wire payload.
func (d Draft) Normalize() (Payload, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return Payload{}, errors.NewValidationError("INVALID_AMOUNT", "amount is not a number").WithCause(err)
	}
	if amount.IsNegative() || amount.IsZero() {
		return Payload{}, errors.NewValidationError("INVALID_AMOUNT", "amount must be positive")
	}
	return Payload{Amount: amount, Message: d.Message}, nil
}

// Payload is the normalized wire form of a bid submission.
type Payload struct {
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message,omitempty"`
}
