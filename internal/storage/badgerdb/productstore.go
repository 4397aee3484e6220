package badgerdb

import (
	"context"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/interfaces"
	"github.com/htmmed/qctrack/internal/models"
)

type productStore struct {
	db     *badgerhold.Store
	logger *common.Logger
}

var _ interfaces.ProductStore = (*productStore)(nil)

func (s *productStore) Upsert(_ context.Context, product *models.Product) error {
	if product.ProductCode == "" {
		return fmt.Errorf("product code is required")
	}
	if err := s.db.Upsert(product.ProductCode, product); err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", product.ProductCode, err)
	}
	return nil
}

func (s *productStore) Get(_ context.Context, productCode string) (*models.Product, error) {
	var product models.Product
	err := s.db.Get(productCode, &product)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", productCode, err)
	}
	return &product, nil
}

func (s *productStore) List(_ context.Context) ([]*models.Product, error) {
	var products []models.Product
	if err := s.db.Find(&products, nil); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].ProductCode < products[j].ProductCode
	})
	out := make([]*models.Product, len(products))
	for i := range products {
		out[i] = &products[i]
	}
	return out, nil
}

func (s *productStore) Delete(_ context.Context, productCode string) error {
	err := s.db.Delete(productCode, models.Product{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("product %s not found", productCode)
	}
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", productCode, err)
	}
	return nil
}

// BulkUpsert writes an imported batch in one transaction. Entries
// without a product code are keyed by trade name so catalog rows with
// only a name still land.
func (s *productStore) BulkUpsert(_ context.Context, products []*models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}
	count := 0
	err := s.db.Badger().Update(func(tx *badger.Txn) error {
		for _, p := range products {
			key := p.ProductCode
			if key == "" {
				key = "name:" + p.TradeName
			}
			if key == "" && p.TradeName == "" {
				continue
			}
			if err := s.db.TxUpsert(tx, key, p); err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", key, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug().Int("count", count).Msg("Catalog batch imported")
	return count, nil
}
