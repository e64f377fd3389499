package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/dwikikusuma/codshop/internal/catalog/app"
	"github.com/dwikikusuma/codshop/internal/catalog/domain"
	"github.com/dwikikusuma/codshop/internal/platform/memdb"
	"github.com/google/uuid"
)

type ProductRepo struct {
	db *memdb.DB
}

func NewProductRepo(db *memdb.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	now := r.db.Now()
	p.CreatedAt, p.UpdatedAt = now, now

	err := r.db.Write(func(t *memdb.Tables) error {
		t.Products[p.ID] = p.Clone()
		return nil
	})
	return p, err
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var out domain.Product
	err := r.db.Read(func(t *memdb.Tables) error {
		p, ok := t.Products[id]
		if !ok {
			return app.ErrNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

// List pages by id like the postgres repo so cursors behave the same.
func (r *ProductRepo) List(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	cursor = strings.TrimSpace(cursor)

	var all []domain.Product
	_ = r.db.Read(func(t *memdb.Tables) error {
		for _, p := range t.Products {
			if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
				continue
			}
			if cursor != "" && p.ID <= cursor {
				continue
			}
			all = append(all, p.Clone())
		}
		return nil
	})
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if len(all) > limit {
		all = all[:limit]
	}
	var next string
	if len(all) == limit && limit > 0 {
		next = all[len(all)-1].ID
	}
	return all, next, nil
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	_ = r.db.Read(func(t *memdb.Tables) error {
		n = len(t.Products)
		return nil
	})
	return n, nil
}
