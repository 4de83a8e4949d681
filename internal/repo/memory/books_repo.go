package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/bookstore/internal/domain/book"
	"github.com/geocoder89/bookstore/internal/repo/postgres"
	"github.com/google/uuid"
)

// BooksRepo is the in-memory catalog used by the integration tests.
type BooksRepo struct {
	mu    sync.RWMutex
	items map[string]book.Book
}

func NewBooksRepo() *BooksRepo {
	return &BooksRepo{
		items: make(map[string]book.Book),
	}
}

func (r *BooksRepo) Create(ctx context.Context, req book.CreateBookRequest) (book.Book, error) {
	now := time.Now().UTC()

	b := book.Book{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Author:    req.Author,
		Genre:     req.Genre,
		Price:     req.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.items[b.ID] = b
	r.mu.Unlock()

	return b, nil
}

func (r *BooksRepo) GetByID(ctx context.Context, id string) (book.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.items[id]

	if !ok {
		return book.Book{}, postgres.ErrBookNotFound
	}

	return b, nil
}

func (r *BooksRepo) List(ctx context.Context, limit, offset int) ([]book.Book, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]book.Book, 0, len(r.items))

	for _, b := range r.items {
		all = append(all, b)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)

	if offset >= total {
		return []book.Book{}, total, nil
	}

	end := offset + limit

	if end > total {
		end = total
	}

	return all[offset:end], total, nil
}

func (r *BooksRepo) Update(ctx context.Context, id string, req book.UpdateBookRequest) (book.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.items[id]

	if !ok {
		return book.Book{}, postgres.ErrBookNotFound
	}

	if req.Title != nil {
		b.Title = *req.Title
	}

	if req.Author != nil {
		b.Author = *req.Author
	}

	if req.Genre != nil {
		b.Genre = *req.Genre
	}

	if req.Price != nil {
		b.Price = *req.Price
	}

	b.UpdatedAt = time.Now().UTC()

	r.items[id] = b

	return b, nil
}

func (r *BooksRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return postgres.ErrBookNotFound
	}

	delete(r.items, id)

	return nil
}
