package grpc

import (
	"context"

	"github.com/dwikikusuma/codshop/internal/auth"
	"github.com/dwikikusuma/codshop/internal/order/app"
	"github.com/dwikikusuma/codshop/internal/order/domain"
	"github.com/dwikikusuma/codshop/pkg/grpcjson"
	"google.golang.org/grpc"
)

const ServiceName = "codshop.order.v1.OrderService"

type GetOrderRequest struct {
	ID string `json:"id"`
}

type OrderResponse struct {
	Order domain.Order `json:"order"`
}

// ListOrdersRequest lists the caller's orders, or every order when All is set
// and the caller is an administrator.
type ListOrdersRequest struct {
	All    bool   `json:"all"`
	Status string `json:"status"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
}

type ListOrdersResponse struct {
	Orders     []domain.Order     `json:"orders"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
}

type SetStatusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type StatsRequest struct{}

type StatsResponse struct {
	Stats domain.Stats `json:"stats"`
}

type OrderServer interface {
	GetOrder(context.Context, *GetOrderRequest) (*OrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	SetStatus(context.Context, *SetStatusRequest) (*OrderResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
}

type Server struct {
	svc *app.Service
}

var _ OrderServer = (*Server)(nil)

func NewServer(svc *app.Service) *Server {
	return &Server{svc: svc}
}

func Register(gs grpc.ServiceRegistrar, s OrderServer) {
	gs.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*OrderServer)(nil),
		Methods: []grpc.MethodDesc{
			grpcjson.Unary(ServiceName, "GetOrder", s.GetOrder),
			grpcjson.Unary(ServiceName, "ListOrders", s.ListOrders),
			grpcjson.Unary(ServiceName, "SetStatus", s.SetStatus),
			grpcjson.Unary(ServiceName, "Stats", s.Stats),
		},
		Metadata: "codshop/order/v1/order.proto",
	}, s)
}

func (s *Server) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderResponse, error) {
	p, err := auth.RequireIncomingGRPC(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.svc.ViewOrder(ctx, p, req.ID)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &OrderResponse{Order: o}, nil
}

func (s *Server) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	p, err := auth.RequireIncomingGRPC(ctx)
	if err != nil {
		return nil, err
	}

	if !req.All {
		orders, err := s.svc.ListMine(ctx, p)
		if err != nil {
			return nil, grpcjson.Status(err)
		}
		return &ListOrdersResponse{Orders: orders}, nil
	}

	page, err := s.svc.ListAll(ctx, p, domain.ListFilter{
		Status: domain.Status(req.Status),
		Page:   req.Page,
		Limit:  req.Limit,
	})
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &ListOrdersResponse{Orders: page.Orders, Pagination: &page.Pagination}, nil
}

func (s *Server) SetStatus(ctx context.Context, req *SetStatusRequest) (*OrderResponse, error) {
	p, err := auth.RequireIncomingGRPC(ctx)
	if err != nil {
		return nil, err
	}
	o, err := s.svc.SetStatus(ctx, p, req.ID, req.Status)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &OrderResponse{Order: o}, nil
}

func (s *Server) Stats(ctx context.Context, _ *StatsRequest) (*StatsResponse, error) {
	p, err := auth.RequireIncomingGRPC(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.svc.Stats(ctx, p)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &StatsResponse{Stats: st}, nil
}
