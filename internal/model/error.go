package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeValidation          = "VALIDATION_FAILED"
	ErrCodeAdminNotFound       = "ADMIN_NOT_FOUND"
	ErrCodeListNotFound        = "LIST_NOT_FOUND"
	ErrCodeItemNotFound        = "ITEM_NOT_FOUND"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeUsernameTaken       = "USERNAME_TAKEN"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeChannelClosed       = "CHANNEL_CLOSED"
	ErrCodeInvalidPrice        = "INVALID_PRICE"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrCodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrAdminNotFound        = NewDomainError(ErrCodeAdminNotFound, "Admin not found")
	ErrListNotFound         = NewDomainError(ErrCodeListNotFound, "Menu list not found")
	ErrItemNotFound         = NewDomainError(ErrCodeItemNotFound, "Menu item not found")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrUsernameTaken        = NewDomainError(ErrCodeUsernameTaken, "Username already exists")
	ErrInvalidCredentials   = NewDomainError(ErrCodeInvalidCredentials, "Invalid username or password")
	ErrCurrentPassword      = NewDomainError(ErrCodeInvalidCredentials, "Current password is incorrect")
	ErrForbidden            = NewDomainError(ErrCodeForbidden, "You do not own this resource")
	ErrWebsiteOrdersClosed  = NewDomainError(ErrCodeChannelClosed, "This menu is not accepting website orders")
	ErrWhatsAppOrdersClosed = NewDomainError(ErrCodeChannelClosed, "This menu is not accepting WhatsApp orders")
	ErrTableOrdersClosed    = NewDomainError(ErrCodeChannelClosed, "This menu is not accepting table orders")
	ErrNegativePrice        = NewDomainError(ErrCodeInvalidPrice, "Price must not be negative")
	ErrDiscountAbovePrice   = NewDomainError(ErrCodeInvalidPrice, "Discounted price must not exceed the price")
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrCustomerRequired     = NewDomainError(ErrCodeValidation, "Customer name and phone are required for website orders")
	ErrTooManyAttempts      = NewDomainError(ErrCodeTooManyRequests, "Too many login attempts, try again later")
)
