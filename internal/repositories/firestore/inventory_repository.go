package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/rastuci/api/internal/platform/firestore"
	"github.com/rastuci/api/internal/repositories"
)

const (
	productsCollection          = "products"
	processedPaymentsCollection = "processedPayments"
)

// InventoryRepository implements the atomic stock ledger over product documents.
type InventoryRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
	markers  *pfirestore.BaseRepository[processedPaymentDocument]
}

// NewInventoryRepository constructs a Firestore-backed stock ledger.
func NewInventoryRepository(provider *pfirestore.Provider) (*InventoryRepository, error) {
	if provider == nil {
		return nil, errors.New("inventory repository requires firestore provider")
	}
	products := pfirestore.NewBaseRepository[productDocument](provider, productsCollection)
	markers := pfirestore.NewBaseRepository[processedPaymentDocument](provider, processedPaymentsCollection)
	return &InventoryRepository{provider: provider, products: products, markers: markers}, nil
}

// DebitForPayment subtracts stock for every line inside one transaction. All
// reads happen before any write, each decrement is guarded by
// "stock >= quantity", and the processed-payment marker is created with the
// same commit so the whole debit is exactly-once per payment id.
func (r *InventoryRepository) DebitForPayment(ctx context.Context, req repositories.StockDebitRequest) (repositories.StockDebitResult, error) {
	if r == nil || r.provider == nil {
		return repositories.StockDebitResult{}, errors.New("inventory repository not initialised")
	}
	paymentID := strings.TrimSpace(req.PaymentID)
	if paymentID == "" {
		return repositories.StockDebitResult{}, errors.New("inventory debit: payment id is required")
	}
	if len(req.Lines) == 0 {
		return repositories.StockDebitResult{}, errors.New("inventory debit: at least one line is required")
	}
	for _, line := range req.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return repositories.StockDebitResult{}, repositories.NewInventoryError(repositories.InventoryErrorStockNotFound, "inventory debit: product id is required", nil)
		}
		if line.Quantity <= 0 {
			return repositories.StockDebitResult{}, repositories.NewInventoryError(repositories.InventoryErrorUnknown, fmt.Sprintf("inventory debit: quantity for %s must be > 0", line.ProductID), nil)
		}
	}

	now := req.Now.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var result repositories.StockDebitResult
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		markerRef, err := r.markers.DocumentRef(ctx, paymentID)
		if err != nil {
			return err
		}
		if _, err := tx.Get(markerRef); err == nil {
			result = repositories.StockDebitResult{AlreadyProcessed: true}
			return nil
		} else if status.Code(err) != codes.NotFound {
			return err
		}

		// Read phase: fetch every product before buffering any write.
		type pendingWrite struct {
			ref *firestore.DocumentRef
			doc productDocument
		}
		pending := make([]pendingWrite, 0, len(req.Lines))
		newStocks := make(map[string]int, len(req.Lines))
		seen := make(map[string]int, len(req.Lines))

		for _, line := range req.Lines {
			productID := strings.TrimSpace(line.ProductID)
			idx, ok := seen[productID]
			if !ok {
				ref, err := r.products.DocumentRef(ctx, productID)
				if err != nil {
					return err
				}
				snap, err := tx.Get(ref)
				if err != nil {
					if status.Code(err) == codes.NotFound {
						return repositories.NewInventoryError(repositories.InventoryErrorStockNotFound, fmt.Sprintf("product %s not found", productID), err)
					}
					return err
				}
				var doc productDocument
				if err := snap.DataTo(&doc); err != nil {
					return fmt.Errorf("decode product %s: %w", productID, err)
				}
				pending = append(pending, pendingWrite{ref: ref, doc: doc})
				idx = len(pending) - 1
				seen[productID] = idx
			}

			doc := &pending[idx].doc
			if line.VariantID != nil && strings.TrimSpace(*line.VariantID) != "" {
				variantID := strings.TrimSpace(*line.VariantID)
				variant := doc.variant(variantID)
				if variant == nil {
					return repositories.NewInventoryError(repositories.InventoryErrorStockNotFound, fmt.Sprintf("variant %s of product %s not found", variantID, productID), nil)
				}
				if variant.Stock < line.Quantity {
					return repositories.NewInventoryError(repositories.InventoryErrorInsufficientStock, fmt.Sprintf("insufficient stock for variant %s of product %s", variantID, productID), nil)
				}
				variant.Stock -= line.Quantity
				newStocks[productID+"/"+variantID] = variant.Stock
			} else {
				if doc.Stock < line.Quantity {
					return repositories.NewInventoryError(repositories.InventoryErrorInsufficientStock, fmt.Sprintf("insufficient stock for product %s", productID), nil)
				}
				doc.Stock -= line.Quantity
				newStocks[productID] = doc.Stock
			}
			doc.UpdatedAt = now
		}

		// Write phase: buffer all product updates, then the dedup marker.
		for _, write := range pending {
			if err := tx.Set(write.ref, write.doc); err != nil {
				return err
			}
		}

		marker := processedPaymentDocument{
			OrderRef:    strings.TrimSpace(req.OrderID),
			ProcessedAt: now,
		}
		if err := tx.Create(markerRef, marker); err != nil {
			if status.Code(err) == codes.AlreadyExists {
				return repositories.NewInventoryError(repositories.InventoryErrorAlreadyProcessed, fmt.Sprintf("payment %s already processed", paymentID), err)
			}
			return err
		}

		result = repositories.StockDebitResult{NewStocks: newStocks}
		return nil
	})
	if err != nil {
		return repositories.StockDebitResult{}, wrapInventoryError("inventory.debit", err)
	}
	return result, nil
}

// GetStock reads the current stock for a product or one of its variants.
func (r *InventoryRepository) GetStock(ctx context.Context, productID string, variantID *string) (int, error) {
	if r == nil || r.products == nil {
		return 0, errors.New("inventory repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return 0, errors.New("inventory get stock: product id is required")
	}

	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		if repoErr, ok := err.(*pfirestore.Error); ok && repoErr.IsNotFound() {
			return 0, repositories.NewInventoryError(repositories.InventoryErrorStockNotFound, fmt.Sprintf("product %s not found", productID), err)
		}
		return 0, wrapInventoryError("inventory.getStock", err)
	}

	if variantID != nil && strings.TrimSpace(*variantID) != "" {
		variant := doc.Data.variant(strings.TrimSpace(*variantID))
		if variant == nil {
			return 0, repositories.NewInventoryError(repositories.InventoryErrorStockNotFound, fmt.Sprintf("variant %s of product %s not found", *variantID, productID), nil)
		}
		return variant.Stock, nil
	}
	return doc.Data.Stock, nil
}

// Helper structures ---------------------------------------------------------

type processedPaymentDocument struct {
	OrderRef    string    `firestore:"orderRef"`
	ProcessedAt time.Time `firestore:"processedAt"`
}

func wrapInventoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		if invErr.Op == "" {
			invErr.Op = op
		}
		return invErr
	}
	return pfirestore.WrapError(op, err)
}
