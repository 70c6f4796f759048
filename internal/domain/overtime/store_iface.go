package overtime

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type StoreAPI interface {
	CreateRequest(ctx context.Context, tenantID string, req Request) (Request, error)
	GetRequest(ctx context.Context, tenantID, requestID string) (Request, error)
	ListRequests(ctx context.Context, tenantID string, filter ListFilter, limit, offset int) (ListResult, error)
	DecideRequest(ctx context.Context, tenantID, requestID, actorID string, decision Decision, decidedAt time.Time) (Request, error)
	SumApprovedHours(ctx context.Context, tenantID, employeeID string, from, to time.Time) (decimal.Decimal, error)
}
