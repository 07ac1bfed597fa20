package repositories

// InventoryError wraps stock-ledger failures with a machine readable code so
// the webhook reconciler can tell a retryable failure from a permanent one.
type InventoryError struct {
	Op      string
	Code    InventoryErrorCode
	Message string
	Err     error
}

// InventoryErrorCode enumerates stock operation failure causes.
type InventoryErrorCode string

const (
	// InventoryErrorUnknown represents an unspecified failure.
	InventoryErrorUnknown InventoryErrorCode = "inventory_unknown"
	// InventoryErrorInsufficientStock indicates requested quantity exceeds the current stock.
	InventoryErrorInsufficientStock InventoryErrorCode = "inventory_insufficient_stock"
	// InventoryErrorStockNotFound indicates the product has no stock record.
	InventoryErrorStockNotFound InventoryErrorCode = "inventory_stock_not_found"
	// InventoryErrorAlreadyProcessed indicates the payment was already debited.
	InventoryErrorAlreadyProcessed InventoryErrorCode = "inventory_already_processed"
)

// NewInventoryError constructs a typed inventory error.
func NewInventoryError(code InventoryErrorCode, message string, err error) *InventoryError {
	if message == "" {
		message = string(code)
	}
	return &InventoryError{Code: code, Message: message, Err: err}
}

func (e *InventoryError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Op == "":
		return e.Message
	default:
		return e.Op + ": " + e.Message
	}
}

func (e *InventoryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
