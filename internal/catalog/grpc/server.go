package grpc

import (
	"context"

	"github.com/dwikikusuma/codshop/internal/auth"
	"github.com/dwikikusuma/codshop/internal/catalog/app"
	"github.com/dwikikusuma/codshop/internal/catalog/domain"
	"github.com/dwikikusuma/codshop/pkg/grpcjson"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
)

const ServiceName = "codshop.catalog.v1.CatalogService"

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	CategoryID  string          `json:"categoryId"`
}

type GetProductRequest struct {
	ID string `json:"id"`
}

type ProductResponse struct {
	Product domain.Product `json:"product"`
}

type ListProductsRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Cursor string `json:"cursor"`
}

type ListProductsResponse struct {
	Products   []domain.Product `json:"products"`
	NextCursor string           `json:"nextCursor"`
}

type CatalogServer interface {
	CreateProduct(context.Context, *CreateProductRequest) (*ProductResponse, error)
	GetProduct(context.Context, *GetProductRequest) (*ProductResponse, error)
	ListProducts(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
}

type Server struct {
	svc *app.Service
}

var _ CatalogServer = (*Server)(nil)

func NewServer(svc *app.Service) *Server {
	return &Server{svc: svc}
}

// Register mounts the catalog service on gs.
func Register(gs grpc.ServiceRegistrar, s CatalogServer) {
	gs.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*CatalogServer)(nil),
		Methods: []grpc.MethodDesc{
			grpcjson.Unary(ServiceName, "CreateProduct", s.CreateProduct),
			grpcjson.Unary(ServiceName, "GetProduct", s.GetProduct),
			grpcjson.Unary(ServiceName, "ListProducts", s.ListProducts),
		},
		Metadata: "codshop/catalog/v1/catalog.proto",
	}, s)
}

func (s *Server) CreateProduct(ctx context.Context, req *CreateProductRequest) (*ProductResponse, error) {
	p, err := auth.RequireIncomingGRPC(ctx)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(p); err != nil {
		return nil, grpcjson.Status(err)
	}

	product, err := s.svc.CreateProduct(ctx, app.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      req.Images,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &ProductResponse{Product: product}, nil
}

func (s *Server) GetProduct(ctx context.Context, req *GetProductRequest) (*ProductResponse, error) {
	p, err := s.svc.GetProduct(ctx, req.ID)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	return &ProductResponse{Product: p}, nil
}

func (s *Server) ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	products, next, err := s.svc.ListProducts(ctx, req.Query, req.Limit, req.Cursor)
	if err != nil {
		return nil, grpcjson.Status(err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return &ListProductsResponse{Products: products, NextCursor: next}, nil
}
