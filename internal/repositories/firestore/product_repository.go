package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/rastuci/api/internal/domain"
	pfirestore "github.com/rastuci/api/internal/platform/firestore"
	"github.com/rastuci/api/internal/platform/pagination"
	"github.com/rastuci/api/internal/repositories"
)

// ProductRepository reads catalog entries from the products collection.
type ProductRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection)
	return &ProductRepository{provider: provider, products: base}, nil
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product find: id is required")
	}
	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns a page of products ordered by name.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	pageSize := pagination.ClampPageSize(filter.Pagination.PageSize, pagination.DefaultPageSize, pagination.DefaultMaxPageSize)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.list", err)
	}

	query := client.Collection(productsCollection).Query
	if filter.OnlyPublished {
		query = query.Where("isPublished", "==", true)
	}
	if category := strings.TrimSpace(filter.CategoryID); category != "" {
		query = query.Where("categoryRef", "==", category)
	}
	query = query.OrderBy("name", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		var cursor productPageToken
		if err := pagination.DecodeToken(token, &cursor); err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.list", err)
		}
		query = query.StartAfter(cursor.Name, cursor.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var products []domain.Product
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.list", err)
		}
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		products = append(products, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(products) > pageSize
	if hasMore {
		products = products[:pageSize]
	}
	var nextToken string
	if hasMore && len(products) > 0 {
		last := products[len(products)-1]
		encoded, err := pagination.EncodeToken(productPageToken{ID: last.ID, Name: last.Name})
		if err != nil {
			return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Product]{
		Items:         products,
		NextPageToken: nextToken,
	}, nil
}

// Helper structures ---------------------------------------------------------

type productDocument struct {
	SKU         string            `firestore:"sku"`
	Name        string            `firestore:"name"`
	Description string            `firestore:"description,omitempty"`
	Price       int64             `firestore:"price"`
	Stock       int               `firestore:"stock"`
	CategoryRef string            `firestore:"categoryRef,omitempty"`
	Variants    []variantDocument `firestore:"variants,omitempty"`
	ImagePaths  []string          `firestore:"imagePaths,omitempty"`
	IsPublished bool              `firestore:"isPublished"`
	CreatedAt   time.Time         `firestore:"createdAt"`
	UpdatedAt   time.Time         `firestore:"updatedAt"`
}

type variantDocument struct {
	ID    string `firestore:"id"`
	Size  string `firestore:"size,omitempty"`
	Color string `firestore:"color,omitempty"`
	Stock int    `firestore:"stock"`
}

// variant returns a pointer into the document's variant slice so callers can
// mutate stock in place before persisting the document.
func (d *productDocument) variant(variantID string) *variantDocument {
	for i := range d.Variants {
		if strings.EqualFold(d.Variants[i].ID, variantID) {
			return &d.Variants[i]
		}
	}
	return nil
}

func (d productDocument) toDomain(id string) domain.Product {
	variants := make([]domain.ProductVariant, len(d.Variants))
	for i, v := range d.Variants {
		variants[i] = domain.ProductVariant{
			ID:    v.ID,
			Size:  v.Size,
			Color: v.Color,
			Stock: v.Stock,
		}
	}
	return domain.Product{
		ID:          id,
		SKU:         strings.TrimSpace(d.SKU),
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
		Price:       d.Price,
		Stock:       d.Stock,
		CategoryID:  strings.TrimSpace(d.CategoryRef),
		Variants:    variants,
		ImagePaths:  d.ImagePaths,
		IsPublished: d.IsPublished,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type productPageToken struct {
	ID   string
	Name string
}
