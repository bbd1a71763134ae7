package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/restock-systems/stockwatch/internal/auth"
	"github.com/restock-systems/stockwatch/internal/composer"
	"github.com/restock-systems/stockwatch/internal/models"
)

type mockComposer struct {
	mock.Mock
}

func (m *mockComposer) SingleItemAlert(ctx context.Context, rec *models.StockRecord) composer.Fragment {
	return m.Called(ctx, rec).Get(0).(composer.Fragment)
}

func (m *mockComposer) BatchSummary(ctx context.Context, alerts []models.AlertEntry) composer.Fragment {
	return m.Called(ctx, alerts).Get(0).(composer.Fragment)
}

func (m *mockComposer) SupplierOrderText(ctx context.Context, req *models.OrderTextRequest) composer.Fragment {
	return m.Called(ctx, req).Get(0).(composer.Fragment)
}

type mockRelay struct {
	mock.Mock
}

func (m *mockRelay) Relay(ctx context.Context, msg *models.NotificationMessage) (*models.DeliveryResult, error) {
	args := m.Called(ctx, msg)
	res, _ := args.Get(0).(*models.DeliveryResult)
	return res, args.Error(1)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, msg *models.NotificationMessage) (*models.DeliveryResult, error) {
	args := m.Called(ctx, msg)
	res, _ := args.Get(0).(*models.DeliveryResult)
	return res, args.Error(1)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.StockRecord, error) {
	args := m.Called(ctx, ownerID)
	recs, _ := args.Get(0).([]*models.StockRecord)
	return recs, args.Error(1)
}

func (m *mockRepository) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockRepository) Close() error                   { return nil }

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) Validate(ctx context.Context, token string) (*auth.UserContext, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*auth.UserContext)
	return user, args.Error(1)
}
