package grpc

import (
	"context"

	"github.com/dwikikusuma/codshop/internal/auth"
	"github.com/dwikikusuma/codshop/internal/cart/app"
	"github.com/dwikikusuma/codshop/internal/cart/domain"
	"github.com/dwikikusuma/codshop/pkg/grpcjson"
	"google.golang.org/grpc"
)

const ServiceName = "codshop.cart.v1.CartService"

type Empty struct{}

type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type SetItemQuantityRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type RemoveItemRequest struct {
	ItemID string `json:"itemId"`
}

type CartResponse struct {
	Cart domain.Cart `json:"cart"`
}

// CartServer operates on the caller's own cart; the user comes from metadata.
type CartServer interface {
	GetCart(context.Context, *Empty) (*CartResponse, error)
	AddItem(context.Context, *AddItemRequest) (*CartResponse, error)
	SetItemQuantity(context.Context, *SetItemQuantityRequest) (*CartResponse, error)
	RemoveItem(context.Context, *RemoveItemRequest) (*CartResponse, error)
	ClearCart(context.Context, *Empty) (*CartResponse, error)
}

type Server struct {
	svc *app.Service
}

var _ CartServer = (*Server)(nil)

func NewServer(svc *app.Service) *Server {
	return &Server{svc: svc}
}

func Register(gs grpc.ServiceRegistrar, s CartServer) {
	gs.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*CartServer)(nil),
		Methods: []grpc.MethodDesc{
			grpcjson.Unary(ServiceName, "GetCart", s.GetCart),
			grpcjson.Unary(ServiceName, "AddItem", s.AddItem),
			grpcjson.Unary(ServiceName, "SetItemQuantity", s.SetItemQuantity),
			grpcjson.Unary(ServiceName, "RemoveItem", s.RemoveItem),
			grpcjson.Unary(ServiceName, "ClearCart", s.ClearCart),
		},
		Metadata: "codshop/cart/v1/cart.proto",
	}, s)
}

func (s *Server) GetCart(ctx context.Context, _ *Empty) (*CartResponse, error) {
	return s.call(ctx, func(userID string) (domain.Cart, error) {
		return s.svc.GetOrCreate(ctx, userID)
	})
}

func (s *Server) AddItem(ctx context.Context, req *AddItemRequest) (*CartResponse, error) {
	return s.call(ctx, func(userID string) (domain.Cart, error) {
		return s.svc.AddItem(ctx, userID, req.ProductID, req.Quantity)
	})
}

func (s *Server) SetItemQuantity(ctx context.Context, req *SetItemQuantityRequest) (*CartResponse, error) {
	return s.call(ctx, func(userID string) (domain.Cart, error) {
		return s.svc.SetItemQuantity(ctx, userID, req.ItemID, req.Quantity)
	})
}

func (s *Server) RemoveItem(ctx context.Context, req *RemoveItemRequest) (*CartResponse, error) {
	return s.call(ctx, func(userID string) (domain.Cart, error) {
		return s.svc.RemoveItem(ctx, userID, req.ItemID)
	})
}

func (s *Server) ClearCart(ctx context.Context, _ *Empty) (*CartResponse, error) {
	return s.call(ctx, func(userID string) (domain.Cart, error) {
		return s.svc.Clear(ctx, userID)
	})
}

func (s *Server) call(ctx context.Context, fn func(userID string) (domain.Cart, error)) (*CartResponse, error) {
	p, err := auth.RequireIncomingGRPC(ctx)
	if err != nil {
		return nil, err
	}
	cart, err := fn(p.UserID)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &CartResponse{Cart: cart}, nil
}
