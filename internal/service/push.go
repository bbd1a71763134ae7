package service

import (
	"context"
	"fmt"

	"github.com/restock-systems/stockwatch/internal/models"
)

// Push authorizes a cross-service dispatch call and delivers the message.
func (s *Service) Push(ctx context.Context, bearerToken string, req *models.PushRequest) (*models.PushResponse, error) {
	if err := check(s.req.Push); err != nil {
		return nil, err
	}
	if !s.authorizeService(bearerToken) {
		return nil, fmt.Errorf("%w: service key required", models.ErrAuth)
	}

	msg, err := req.Message()
	if err != nil {
		return nil, err
	}

	res, err := s.dispatcher.Dispatch(ctx, msg)
	if err != nil {
		return nil, err
	}
	return &models.PushResponse{Success: true, FCMResponse: res}, nil
}

// OrderText composes a supplier order message.
func (s *Service) OrderText(ctx context.Context, req *models.OrderTextRequest) (*models.OrderTextResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	frag := s.composer.SupplierOrderText(ctx, req)
	return &models.OrderTextResponse{Message: frag.Message}, nil
}
