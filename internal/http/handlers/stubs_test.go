package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"service-dispatch/internal/auth"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

func testLogger() logx.Logger { return logx.Nop() }

type stubDeliveryUsecase struct {
	createFn    func(ctx context.Context, customerID string, draft domain.DeliveryDraft) (*domain.Delivery, error)
	getFn       func(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	availableFn func(ctx context.Context) ([]domain.Delivery, error)
	byCustFn    func(ctx context.Context, customerID string) ([]domain.Delivery, error)
	bidsFn      func(ctx context.Context, deliveryID uuid.UUID) ([]domain.Bid, error)
	lifecycleFn func(op string, id uuid.UUID, actor string) (*domain.Delivery, error)
}

func (s *stubDeliveryUsecase) CreateDelivery(ctx context.Context, customerID string, draft domain.DeliveryDraft) (*domain.Delivery, error) {
	return s.createFn(ctx, customerID, draft)
}

func (s *stubDeliveryUsecase) GetDelivery(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	return s.getFn(ctx, id)
}

func (s *stubDeliveryUsecase) ListAvailable(ctx context.Context) ([]domain.Delivery, error) {
	return s.availableFn(ctx)
}

func (s *stubDeliveryUsecase) ListByCustomer(ctx context.Context, customerID string) ([]domain.Delivery, error) {
	return s.byCustFn(ctx, customerID)
}

func (s *stubDeliveryUsecase) ListBids(ctx context.Context, deliveryID uuid.UUID) ([]domain.Bid, error) {
	return s.bidsFn(ctx, deliveryID)
}

func (s *stubDeliveryUsecase) StartDelivery(_ context.Context, id uuid.UUID, actor string) (*domain.Delivery, error) {
	return s.lifecycleFn("start", id, actor)
}

func (s *stubDeliveryUsecase) CompleteDelivery(_ context.Context, id uuid.UUID, actor string) (*domain.Delivery, error) {
	return s.lifecycleFn("complete", id, actor)
}

func (s *stubDeliveryUsecase) CancelDelivery(_ context.Context, id uuid.UUID, actor string) (*domain.Delivery, error) {
	return s.lifecycleFn("cancel", id, actor)
}

type stubBidUsecase struct {
	placeFn  func(ctx context.Context, driver domain.DriverSummary, deliveryID uuid.UUID, amount decimal.Decimal) (*domain.Bid, error)
	acceptFn func(ctx context.Context, bidID uuid.UUID, callerID string) (*domain.Bid, *domain.Delivery, error)
}

func (s *stubBidUsecase) PlaceBid(ctx context.Context, driver domain.DriverSummary, deliveryID uuid.UUID, amount decimal.Decimal) (*domain.Bid, error) {
	return s.placeFn(ctx, driver, deliveryID, amount)
}

func (s *stubBidUsecase) AcceptBid(ctx context.Context, bidID uuid.UUID, callerID string) (*domain.Bid, *domain.Delivery, error) {
	return s.acceptFn(ctx, bidID, callerID)
}

type stubDirectory struct {
	summary domain.DriverSummary
	err     error
}

func (s stubDirectory) Driver(_ context.Context, id string) (domain.DriverSummary, error) {
	if s.err != nil {
		return domain.DriverSummary{ID: id}, s.err
	}
	return s.summary, nil
}

func newRequest(method, target, body string, p *auth.Principal, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := req.Context()
	if p != nil {
		ctx = auth.WithPrincipal(ctx, *p)
	}
	if len(params) > 0 {
		routeCtx := chi.NewRouteContext()
		for k, v := range params {
			routeCtx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func customer(id string) *auth.Principal { return &auth.Principal{UserID: id, Role: auth.RoleCustomer} }
func driver(id string) *auth.Principal   { return &auth.Principal{UserID: id, Role: auth.RoleDriver} }

func sampleDelivery(customerID string) *domain.Delivery {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Delivery{
		ID:                 uuid.New(),
		PickupAddress:      "1 Main St",
		DropoffAddress:     "9 Side St",
		PackageDescription: "box",
		VehicleType:        domain.VehicleCar,
		OfferPrice:         decimal.RequireFromString("25.50"),
		InsuranceFee:       decimal.Zero,
		Status:             domain.DeliveryPending,
		CustomerID:         customerID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
