package grpc

import (
	"context"

	"github.com/dwikikusuma/codshop/internal/auth"
	"github.com/dwikikusuma/codshop/internal/checkout/app"
	"github.com/dwikikusuma/codshop/internal/checkout/domain"
	orderdomain "github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/dwikikusuma/codshop/pkg/grpcjson"
	"google.golang.org/grpc"
)

const ServiceName = "codshop.checkout.v1.CheckoutService"

type QuoteRequest struct{}

type QuoteResponse struct {
	Quote domain.Quote `json:"quote"`
}

type PlaceOrderRequest struct {
	ShippingAddress orderdomain.ShippingAddress `json:"shippingAddress"`
	IdempotencyKey  string                      `json:"idempotencyKey"`
}

type PlaceOrderResponse struct {
	Order orderdomain.Order `json:"order"`
}

type CheckoutServer interface {
	Quote(context.Context, *QuoteRequest) (*QuoteResponse, error)
	PlaceOrder(context.Context, *PlaceOrderRequest) (*PlaceOrderResponse, error)
}

type Server struct {
	svc *app.Service
}

var _ CheckoutServer = (*Server)(nil)

func NewServer(svc *app.Service) *Server {
	return &Server{svc: svc}
}

func Register(gs grpc.ServiceRegistrar, s CheckoutServer) {
	gs.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*CheckoutServer)(nil),
		Methods: []grpc.MethodDesc{
			grpcjson.Unary(ServiceName, "Quote", s.Quote),
			grpcjson.Unary(ServiceName, "PlaceOrder", s.PlaceOrder),
		},
		Metadata: "codshop/checkout/v1/checkout.proto",
	}, s)
}

func (s *Server) Quote(ctx context.Context, _ *QuoteRequest) (*QuoteResponse, error) {
	p, err := auth.RequireIncomingGRPC(ctx)
	if err != nil {
		return nil, err
	}

	q, err := s.svc.Quote(ctx, p)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &QuoteResponse{Quote: q}, nil
}

func (s *Server) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	p, err := auth.RequireIncomingGRPC(ctx)
	if err != nil {
		return nil, err
	}

	order, err := s.svc.PlaceOrder(ctx, p, app.PlaceOrderInput{
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  req.IdempotencyKey,
	})
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &PlaceOrderResponse{Order: order}, nil
}
