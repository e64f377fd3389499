package memory

import (
	"context"

	"github.com/dwikikusuma/codshop/internal/platform/memdb"
)

type DirectoryRepo struct {
	db *memdb.DB
}

func NewDirectoryRepo(db *memdb.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) AddUser(id, role string) {
	_ = r.db.Write(func(t *memdb.Tables) error {
		t.Users[id] = role
		return nil
	})
}

func (r *DirectoryRepo) AddCategory(id, name string) {
	_ = r.db.Write(func(t *memdb.Tables) error {
		t.Categories[id] = name
		return nil
	})
}

func (r *DirectoryRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	_ = r.db.Read(func(t *memdb.Tables) error {
		for _, role := range t.Users {
			if role == "user" {
				n++
			}
		}
		return nil
	})
	return n, nil
}

func (r *DirectoryRepo) CountCategories(ctx context.Context) (int, error) {
	var n int
	_ = r.db.Read(func(t *memdb.Tables) error {
		n = len(t.Categories)
		return nil
	})
	return n, nil
}
