package service

import (
	"context"
	"errors"

	"pharmafront/internal/apperr"
	"pharmafront/internal/domain"
	"pharmafront/internal/repository"
)

// OrderService covers order management after placement: lookup, seller
// assignment and status changes.
type OrderService struct {
	orders repository.OrderRepository
}

func NewOrderService(orders repository.OrderRepository) *OrderService {
	return &OrderService{orders: orders}
}

var ErrInvalidState = errors.New("invalid state")

func invalidState(msg string) error {
	return &apperr.AppError{Kind: apperr.Conflict, PublicMsg: msg, Err: ErrInvalidState}
}

func (s *OrderService) Get(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.orders.Get(ctx, id)
}

func (s *OrderService) List(ctx context.Context, p repository.ListParams) ([]domain.Order, error) {
	return s.orders.List(ctx, p)
}

func (s *OrderService) AssignSeller(ctx context.Context, id, sellerID int64, notes string) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if sellerID <= 0 {
		return nil, invalidInput("Debe seleccionar un vendedor")
	}
	return s.orders.AssignSeller(ctx, id, domain.AssignSellerRequest{AssignedSellerID: sellerID, AssignmentNotes: notes})
}

func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if !status.Valid() {
		return nil, invalidInput("Estado de pedido desconocido")
	}
	return s.orders.UpdateStatus(ctx, id, status)
}

// Cancel refuses orders that already reached a final status.
func (s *OrderService) Cancel(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status.Final() {
		return nil, invalidState("El pedido ya está finalizado")
	}
	return s.orders.UpdateStatus(ctx, id, domain.OrderStatusCancelled)
}
