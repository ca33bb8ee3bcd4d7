package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/zayna-hotel/pkg/events"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
	"github.com/diagnosis/zayna-hotel/pkg/metrics"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/catalog"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/domain"
	"github.com/diagnosis/zayna-hotel/services/hotel/internal/repository"
)

const recentLimit = 50

type BookingService interface {
	BookSpa(ctx context.Context, c domain.Customer, req *domain.SpaBookingRequest) (*domain.SpaBooking, error)
	OrderDining(ctx context.Context, c domain.Customer, req *domain.DiningOrderRequest) (*domain.DiningOrder, error)
	SpaBookings(ctx context.Context, c domain.Customer) ([]domain.SpaBooking, error)
	DiningOrders(ctx context.Context, c domain.Customer) ([]domain.DiningOrder, error)
}

type bookingService struct {
	bookings repository.SpaBookingRepository
	orders   repository.DiningOrderRepository
	guests   repository.GuestRepository
	catalog  *catalog.Catalog
	bus      events.Publisher
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewBookingService(
	bookings repository.SpaBookingRepository,
	orders repository.DiningOrderRepository,
	guests repository.GuestRepository,
	cat *catalog.Catalog,
	bus events.Publisher,
	m *metrics.Metrics,
) BookingService {
	return &bookingService{
		bookings: bookings,
		orders:   orders,
		guests:   guests,
		catalog:  cat,
		bus:      bus,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *bookingService) BookSpa(ctx context.Context, c domain.Customer, req *domain.SpaBookingRequest) (*domain.SpaBooking, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	svc, ok := s.catalog.SpaService(req.ServiceID)
	if !ok {
		return nil, domain.ErrUnknownService
	}
	if !domain.WithinTolerance(svc.Price, req.Price) {
		logger.InfoContext(ctx, "Spa price mismatch", "service_id", svc.ID, "catalog", svc.Price, "client", req.Price)
		return nil, domain.ErrBookingMismatch
	}

	booking := &domain.SpaBooking{
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		Date:            req.Date,
		Time:            req.Time,
		Duration:        req.Duration,
		Price:           svc.Price,
		Therapist:       req.Therapist,
		Notes:           req.Notes,
		PaymentIntentID: req.PaymentIntentID,
		UserID:          c.ID,
		UserEmail:       c.Email,
		Status:          domain.StatusConfirmed,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to save spa booking: %w", err)
	}
	if err := s.guests.AppendBooking(ctx, c.ID, booking.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to link booking to guest", "error", err, "booking_id", booking.ID.Hex())
	}
	s.metrics.IncSpaBooking()
	logger.InfoContext(ctx, "Spa booking created", "booking_id", booking.ID.Hex(), "service", svc.Name)

	publish(ctx, s.bus, s.metrics, events.SpaBookingCreated, events.SpaBookingCreatedEvent{
		BookingID:   booking.ID.Hex(),
		UserID:      c.ID.Hex(),
		UserEmail:   c.Email,
		UserName:    c.Name,
		ServiceName: booking.ServiceName,
		Date:        booking.Date,
		Time:        booking.Time,
		Price:       booking.Price,
		CreatedAt:   booking.CreatedAt,
	})
	return booking, nil
}

func (s *bookingService) OrderDining(ctx context.Context, c domain.Customer, req *domain.DiningOrderRequest) (*domain.DiningOrder, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	for _, it := range req.Items {
		item, ok := s.catalog.MenuItem(it.ID)
		if !ok {
			return nil, domain.ErrUnknownMenuItem
		}
		if !domain.WithinTolerance(item.Price, it.Price) {
			return nil, domain.Invalid(fmt.Sprintf("Price for %s does not match the menu", item.Name)).WithCode(domain.ErrOrderMismatch.Code)
		}
	}
	if !req.TotalMatches() {
		logger.InfoContext(ctx, "Dining total mismatch", "subtotal", req.Subtotal(), "total", req.Total)
		return nil, domain.ErrOrderMismatch
	}

	now := s.now().UTC()
	order := &domain.DiningOrder{
		Items:             req.Items,
		Total:             req.Total,
		DeliveryAddress:   req.DeliveryAddress,
		Notes:             req.Notes,
		PaymentIntentID:   req.PaymentIntentID,
		UserID:            c.ID,
		UserEmail:         c.Email,
		Status:            domain.StatusConfirmed,
		EstimatedDelivery: now.Add(domain.DiningDeliveryWindow),
		CreatedAt:         now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save dining order: %w", err)
	}
	if err := s.guests.AppendOrder(ctx, c.ID, order.ID); err != nil {
		logger.ErrorContext(ctx, "Failed to link order to guest", "error", err, "order_id", order.ID.Hex())
	}
	s.metrics.IncDiningOrder()
	logger.InfoContext(ctx, "Dining order created", "order_id", order.ID.Hex(), "items", len(order.Items))

	items := make([]events.DiningOrderItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, events.DiningOrderItem{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	publish(ctx, s.bus, s.metrics, events.DiningOrderCreated, events.DiningOrderCreatedEvent{
		OrderID:           order.ID.Hex(),
		UserID:            c.ID.Hex(),
		UserEmail:         c.Email,
		UserName:          c.Name,
		Items:             items,
		Total:             order.Total,
		EstimatedDelivery: order.EstimatedDelivery,
		CreatedAt:         order.CreatedAt,
	})
	return order, nil
}

func (s *bookingService) SpaBookings(ctx context.Context, c domain.Customer) ([]domain.SpaBooking, error) {
	out, err := s.bookings.ListByUser(ctx, c.ID, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list spa bookings: %w", err)
	}
	return out, nil
}

func (s *bookingService) DiningOrders(ctx context.Context, c domain.Customer) ([]domain.DiningOrder, error) {
	out, err := s.orders.ListByUser(ctx, c.ID, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dining orders: %w", err)
	}
	return out, nil
}
