// internal/membership/service.go
package membership

import (
	"context"

	"lendingdesk/internal/model"
)

// Service defines the interface for the membership service.
type Service interface {
	AddMember(ctx context.Context, req NewMember) (*model.Member, error)
	GetMember(ctx context.Context, id int64) (*model.Member, error)
	ExtendMembership(ctx context.Context, id int64, d Duration) (*model.Member, error)
	CancelMembership(ctx context.Context, id int64) (*model.Member, error)
}
