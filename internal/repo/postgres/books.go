package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/bookstore/internal/domain/book"
	"github.com/geocoder89/bookstore/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrBookNotFound = errors.New("book not found")

type BooksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewBooksRepo(pool *pgxpool.Pool, prom *observability.Prom) *BooksRepo {
	return &BooksRepo{pool: pool, prom: prom}
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

	err := r.prom.ObserveDB("books.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO books (id, title, author, genre, price, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			b.ID, b.Title, b.Author, b.Genre, b.Price, b.CreatedAt, b.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return book.Book{}, err
	}

	return b, nil
}

func (r *BooksRepo) GetByID(ctx context.Context, id string) (book.Book, error) {
	var b book.Book

	err := r.prom.ObserveDB("books.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, title, author, genre, price, created_at, updated_at
			 FROM books
			 WHERE id = $1`,
			id,
		).Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Price, &b.CreatedAt, &b.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return book.Book{}, ErrBookNotFound
		}

		return book.Book{}, err
	}

	return b, nil
}

// List pages with plain offset/limit. Ordering is by creation time just to
// keep pages stable; nothing downstream relies on it.
func (r *BooksRepo) List(ctx context.Context, limit, offset int) ([]book.Book, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if offset < 0 {
		offset = 0
	}

	var (
		books []book.Book
		total int
	)

	err := r.prom.ObserveDB("books.list", func() error {
		if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
			return err
		}

		rows, err := r.pool.Query(ctx,
			`SELECT id, title, author, genre, price, created_at, updated_at
			 FROM books
			 ORDER BY created_at DESC, id
			 LIMIT $1 OFFSET $2`,
			limit, offset,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var b book.Book

			if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Price, &b.CreatedAt, &b.UpdatedAt); err != nil {
				return err
			}

			books = append(books, b)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

func (r *BooksRepo) Update(ctx context.Context, id string, req book.UpdateBookRequest) (book.Book, error) {
	var b book.Book

	err := r.prom.ObserveDB("books.update", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE books
			 SET title = COALESCE($2, title),
			     author = COALESCE($3, author),
			     genre = COALESCE($4, genre),
			     price = COALESCE($5, price),
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING id, title, author, genre, price, created_at, updated_at`,
			id, req.Title, req.Author, req.Genre, req.Price,
		).Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Price, &b.CreatedAt, &b.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return book.Book{}, ErrBookNotFound
		}

		return book.Book{}, err
	}

	return b, nil
}

func (r *BooksRepo) Delete(ctx context.Context, id string) error {
	return r.prom.ObserveDB("books.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return ErrBookNotFound
		}

		return nil
	})
}
