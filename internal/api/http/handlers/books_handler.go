package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/book-store-service/internal/api/dto"
	"github.com/spec-kit/book-store-service/internal/auth"
	"github.com/spec-kit/book-store-service/internal/domain"
	"github.com/spec-kit/book-store-service/internal/service"
	apperrors "github.com/spec-kit/book-store-service/pkg/util"
)

// BooksHandler exposes the catalog under /store/books.
type BooksHandler struct {
	books *service.BookService
}

// NewBooksHandler constructs handler.
func NewBooksHandler(books *service.BookService) *BooksHandler {
	return &BooksHandler{books: books}
}

// List handles GET /store/books.
func (h *BooksHandler) List(c *fiber.Ctx) error {
	var q dto.BookListQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	if err := dto.Validate(q); err != nil {
		return err
	}
	if err := q.CheckPriceRange(); err != nil {
		return err
	}

	page, err := h.books.List(c.UserContext(), service.BookQuery{
		Title:    q.Title,
		Author:   q.Author,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Page:     q.Page,
		Limit:    q.Limit,
	})
	if err != nil {
		return err
	}

	resp := dto.BookListResponse{
		Books: make([]dto.BookResponse, 0, len(page.Books)),
		Pagination: dto.Pagination{
			Total: page.Total,
			Page:  page.Page,
			Limit: page.Limit,
			Pages: page.Pages,
		},
	}
	for i := range page.Books {
		resp.Books = append(resp.Books, dto.NewBookResponse(&page.Books[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Get handles GET /store/books/:id.
func (h *BooksHandler) Get(c *fiber.Ctx) error {
	book, err := h.books.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBookResponse(book)})
}

// Create handles POST /store/books.
func (h *BooksHandler) Create(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.BookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	book, err := h.books.Create(c.UserContext(), req.ToDomain(), identity)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Book created successfully",
		"data":    dto.NewBookResponse(book),
	})
}

// Update handles PUT /store/books/:id.
func (h *BooksHandler) Update(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	var req dto.BookUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	book, err := h.books.Update(c.UserContext(), c.Params("id"), req.ToDomain(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Book updated successfully",
		"data":    dto.NewBookResponse(book),
	})
}

// Delete handles DELETE /store/books/:id.
func (h *BooksHandler) Delete(c *fiber.Ctx) error {
	identity, err := caller(c)
	if err != nil {
		return err
	}
	if err := h.books.Delete(c.UserContext(), c.Params("id"), identity); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Book deleted successfully"})
}

func caller(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("NO_REFRESH_TOKEN", "Authentication required")
	}
	return *identity, nil
}
