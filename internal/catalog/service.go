// internal/catalog/service.go
package catalog

import (
	"context"
	"iter"

	"lendingdesk/internal/model"
)

// Service defines the interface for the catalog service.
type Service interface {
	AddItems(ctx context.Context, req NewItems) ([]model.Item, error)
	GetItem(ctx context.Context, serial string) (*model.Item, error)
	SetItemStatus(ctx context.Context, serial string, status model.ItemStatus) error
	FindItems(ctx context.Context, titleContains string) iter.Seq2[model.Item, error]
}
