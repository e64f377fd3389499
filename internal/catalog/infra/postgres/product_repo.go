package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dwikikusuma/codshop/internal/catalog/app"
	"github.com/dwikikusuma/codshop/internal/catalog/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const productColumns = `id::text, name, description, price::text, stock, images, COALESCE(category_id::text, ''), created_at, updated_at`

type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	var category any
	if p.CategoryID != "" {
		if _, err := uuid.Parse(p.CategoryID); err != nil {
			return domain.Product{}, app.ErrInvalidInput
		}
		category = p.CategoryID
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock, images, category_id)
		VALUES ($1, $2, $3::numeric, $4, $5, $6::uuid)
		RETURNING `+productColumns,
		p.Name, p.Description, p.Price.String(), p.Stock, images, category,
	)
	return scanProduct(row)
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Product{}, app.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, app.ErrNotFound
	}
	return p, err
}

func (r *ProductRepo) List(ctx context.Context, query string, limit int, cursor string) ([]domain.Product, string, error) {
	var cur any
	if c := strings.TrimSpace(cursor); c != "" {
		if _, err := uuid.Parse(c); err != nil {
			return nil, "", app.ErrInvalidInput
		}
		cur = c
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		  AND ($2::uuid IS NULL OR id > $2::uuid)
		ORDER BY id
		LIMIT $3`,
		strings.TrimSpace(query), cur, limit,
	)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out := make([]domain.Product, 0, limit)
	var nextCursor string

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, p)
		nextCursor = p.ID
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	if len(out) < limit {
		nextCursor = ""
	}

	return out, nextCursor, nil
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &p.Images, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, err
	}
	amount, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s price %q: %w", p.ID, price, err)
	}
	p.Price = amount
	return p, nil
}
