package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/book-store-service/internal/domain"
	"github.com/spec-kit/book-store-service/internal/repository"
	apperrors "github.com/spec-kit/book-store-service/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BookQuery is a filtered, paginated catalog request.
type BookQuery struct {
	Title    string
	Author   string
	MinPrice *float64
	MaxPrice *float64
	Page     int
	Limit    int
}

// BookPage is one page of catalog results.
type BookPage struct {
	Books []domain.Book
	Total int64
	Page  int
	Limit int
	Pages int
}

// BookService manages the catalog.
type BookService struct {
	books  repository.BookRepository
	logger *zap.Logger
}

// NewBookService creates the service.
func NewBookService(books repository.BookRepository, logger *zap.Logger) *BookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookService{books: books, logger: logger}
}

// List returns books sorted by title.
func (s *BookService) List(ctx context.Context, q BookQuery) (*BookPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	books, total, err := s.books.List(ctx, repository.BookFilter{
		Title:    q.Title,
		Author:   q.Author,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	return &BookPage{
		Books: books,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// Get fetches a single book.
func (s *BookService) Get(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, mapBookError(err)
	}
	return book, nil
}

// Create stores a new book attributed to the caller.
func (s *BookService) Create(ctx context.Context, book *domain.Book, by domain.Identity) (*domain.Book, error) {
	book.ID = ""
	book.CreatedBy = by.UserID
	book.UpdatedBy = ""
	if err := s.books.Create(ctx, book); err != nil {
		return nil, mapBookError(err)
	}
	s.logger.Info("book created", zap.String("book_id", book.ID), zap.String("user_id", by.UserID))
	return book, nil
}

// Update applies a partial update attributed to the caller.
func (s *BookService) Update(ctx context.Context, id string, update domain.BookUpdate, by domain.Identity) (*domain.Book, error) {
	if update.Empty() {
		return nil, apperrors.NewValidationError("No valid fields to update", nil)
	}
	book, err := s.books.Update(ctx, id, update, by.UserID)
	if err != nil {
		return nil, mapBookError(err)
	}
	s.logger.Info("book updated", zap.String("book_id", id), zap.String("user_id", by.UserID))
	return book, nil
}

// Delete removes a book.
func (s *BookService) Delete(ctx context.Context, id string, by domain.Identity) error {
	if err := s.books.Delete(ctx, id); err != nil {
		return mapBookError(err)
	}
	s.logger.Info("book deleted", zap.String("book_id", id), zap.String("user_id", by.UserID))
	return nil
}

func mapBookError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		return apperrors.NewBadRequest("INVALID_ID", "Invalid book ID format")
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("book", nil)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict("A book with this title and author already exists", nil)
	default:
		return err
	}
}
