package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/interfaces"
	"github.com/htmmed/qctrack/internal/models"
)

const productSelectFields = `product_code, trade_name, device_name, product_line, brand, registration_number`

const productSetClause = `product_code = $product_code, trade_name = $trade_name,
	device_name = $device_name, product_line = $product_line, brand = $brand,
	registration_number = $registration_number`

// ProductStore implements interfaces.ProductStore using SurrealDB.
type ProductStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.ProductStore = (*ProductStore)(nil)

// NewProductStore creates a new ProductStore.
func NewProductStore(db *surrealdb.DB, logger *common.Logger) *ProductStore {
	return &ProductStore{db: db, logger: logger}
}

func productKey(p *models.Product) string {
	if p.ProductCode != "" {
		return p.ProductCode
	}
	return "name:" + p.TradeName
}

func productVars(p *models.Product) map[string]any {
	return map[string]any{
		"rid":                 surrealmodels.NewRecordID("product", productKey(p)),
		"product_code":        p.ProductCode,
		"trade_name":          p.TradeName,
		"device_name":         p.DeviceName,
		"product_line":        p.ProductLine,
		"brand":               p.Brand,
		"registration_number": p.RegistrationNumber,
	}
}

func (s *ProductStore) Upsert(ctx context.Context, product *models.Product) error {
	if product.ProductCode == "" {
		return fmt.Errorf("product code is required")
	}
	sql := "UPSERT $rid SET " + productSetClause
	if _, err := surrealdb.Query[any](ctx, s.db, sql, productVars(product)); err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", product.ProductCode, err)
	}
	return nil
}

func (s *ProductStore) Get(ctx context.Context, productCode string) (*models.Product, error) {
	sql := "SELECT " + productSelectFields + " FROM $rid"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("product", productCode),
	}

	results, err := surrealdb.Query[[]models.Product](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

func (s *ProductStore) List(ctx context.Context) ([]*models.Product, error) {
	sql := "SELECT " + productSelectFields + " FROM product ORDER BY product_code ASC"

	results, err := surrealdb.Query[[]models.Product](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]*models.Product, 0)
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			products = append(products, &(*results)[0].Result[i])
		}
	}
	return products, nil
}

func (s *ProductStore) Delete(ctx context.Context, productCode string) error {
	existing, err := s.Get(ctx, productCode)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("product %s not found", productCode)
	}

	if _, err := surrealdb.Delete[models.Product](ctx, s.db, surrealmodels.NewRecordID("product", productCode)); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete product %s: %w", productCode, err)
	}
	return nil
}

// BulkUpsert writes an imported catalog batch, skipping entries without
// any identity. Returns how many landed.
func (s *ProductStore) BulkUpsert(ctx context.Context, products []*models.Product) (int, error) {
	count := 0
	for _, p := range products {
		if p.ProductCode == "" && p.TradeName == "" {
			continue
		}
		sql := "UPSERT $rid SET " + productSetClause
		if _, err := surrealdb.Query[any](ctx, s.db, sql, productVars(p)); err != nil {
			return count, fmt.Errorf("failed to upsert product %s: %w", productKey(p), err)
		}
		count++
	}
	s.logger.Debug().Int("count", count).Msg("Catalog batch imported")
	return count, nil
}
