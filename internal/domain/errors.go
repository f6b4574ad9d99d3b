package domain

// Domain errors
var (
	ErrNegativeStock      = &DomainError{Message: "stock values must not be negative"}
	ErrInvalidStockRange  = &DomainError{Message: "min stock must not exceed max stock"}
	ErrNegativePrice      = &DomainError{Message: "price must not be negative"}
	ErrInvalidQuantity    = &DomainError{Message: "quantity must be positive"}
	ErrInvalidTransition  = &DomainError{Message: "order transition not allowed"}
	ErrUnknownOrderItem   = &DomainError{Message: "batch is not part of the order"}
	ErrResponseAfterStart = &DomainError{Message: "supplier response is only accepted while the order is on hold"}
)

// DomainError represents a domain-level error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}
