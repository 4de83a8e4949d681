package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/bookstore/internal/config"
	"github.com/geocoder89/bookstore/internal/domain/book"
	"github.com/geocoder89/bookstore/internal/repo/postgres"
	"github.com/gin-gonic/gin"
)

type BookStore interface {
	Create(ctx context.Context, req book.CreateBookRequest) (book.Book, error)
	GetByID(ctx context.Context, id string) (book.Book, error)
	List(ctx context.Context, limit, offset int) ([]book.Book, int, error)
	Update(ctx context.Context, id string, req book.UpdateBookRequest) (book.Book, error)
	Delete(ctx context.Context, id string) error
}

type BooksHandler struct {
	repo BookStore
}

func NewBooksHandler(repo BookStore) *BooksHandler {
	return &BooksHandler{repo: repo}
}

func (h *BooksHandler) CreateBook(ctx *gin.Context) {
	var req book.CreateBookRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	b, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create book")
		return
	}

	RespondSuccess(ctx, http.StatusCreated, gin.H{"book": b})
}

func (h *BooksHandler) ListBooks(ctx *gin.Context) {
	limit := intQuery(ctx, "limit", 20)
	offset := intQuery(ctx, "offset", 0)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	books, total, err := h.repo.List(cctx, limit, offset)

	if err != nil {
		RespondInternal(ctx, "Could not list books")
		return
	}

	if books == nil {
		books = []book.Book{}
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"books": books,
		"total": total,
	})
}

func (h *BooksHandler) GetBookByID(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrBookNotFound) {
			RespondNotFound(ctx, "No book found")
			return
		}

		RespondInternal(ctx, "Could not fetch book")
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{"book": b})
}

func (h *BooksHandler) UpdateBook(ctx *gin.Context) {
	id := ctx.Param("id")

	var req book.UpdateBookRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	b, err := h.repo.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, postgres.ErrBookNotFound) {
			RespondNotFound(ctx, "No book found")
			return
		}

		RespondInternal(ctx, "Could not update book")
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{"book": b})
}

func (h *BooksHandler) DeleteBook(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrBookNotFound) {
			RespondNotFound(ctx, "No book found")
			return
		}

		RespondInternal(ctx, "Could not delete book")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func intQuery(ctx *gin.Context, key string, fallback int) int {
	v := ctx.Query(key)

	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)

	if err != nil {
		return fallback
	}

	return n
}
