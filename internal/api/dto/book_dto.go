package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/book-store-service/internal/domain"
	apperrors "github.com/spec-kit/book-store-service/pkg/util"
)

const dateLayout = "2006-01-02"

// BookRequest is the payload for creating a book.
type BookRequest struct {
	Title         string   `json:"title" validate:"required,max=300"`
	Author        string   `json:"author" validate:"required,max=200"`
	Price         *float64 `json:"price" validate:"required,gte=0"`
	PublishedDate string   `json:"publishedDate" validate:"omitempty,datetime=2006-01-02"`
	ISBN          string   `json:"isbn" validate:"omitempty,max=20"`
	Genre         string   `json:"genre" validate:"omitempty,max=100"`
	Language      string   `json:"language" validate:"omitempty,max=50"`
	Publisher     string   `json:"publisher" validate:"omitempty,max=200"`
	Description   string   `json:"description" validate:"omitempty,max=5000"`
	Pages         int      `json:"pages" validate:"omitempty,gte=1"`
}

// ToDomain converts the validated request.
func (r BookRequest) ToDomain() *domain.Book {
	book := &domain.Book{
		Title:       strings.TrimSpace(r.Title),
		Author:      strings.TrimSpace(r.Author),
		ISBN:        strings.TrimSpace(r.ISBN),
		Genre:       strings.TrimSpace(r.Genre),
		Language:    strings.TrimSpace(r.Language),
		Publisher:   strings.TrimSpace(r.Publisher),
		Description: strings.TrimSpace(r.Description),
		Pages:       r.Pages,
	}
	if r.Price != nil {
		book.Price = *r.Price
	}
	book.PublishedDate = parseDate(r.PublishedDate)
	return book
}

// BookUpdateRequest is the payload for a partial update; omitted fields stay unchanged.
type BookUpdateRequest struct {
	Title         *string  `json:"title" validate:"omitempty,min=1,max=300"`
	Author        *string  `json:"author" validate:"omitempty,min=1,max=200"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	PublishedDate *string  `json:"publishedDate" validate:"omitempty,datetime=2006-01-02"`
	ISBN          *string  `json:"isbn" validate:"omitempty,max=20"`
	Genre         *string  `json:"genre" validate:"omitempty,max=100"`
	Language      *string  `json:"language" validate:"omitempty,max=50"`
	Publisher     *string  `json:"publisher" validate:"omitempty,max=200"`
	Description   *string  `json:"description" validate:"omitempty,max=5000"`
	Pages         *int     `json:"pages" validate:"omitempty,gte=1"`
}

// ToDomain converts the validated request.
func (r BookUpdateRequest) ToDomain() domain.BookUpdate {
	return domain.BookUpdate{
		Title:         trimmed(r.Title),
		Author:        trimmed(r.Author),
		Price:         r.Price,
		PublishedDate: parseDatePtr(r.PublishedDate),
		ISBN:          trimmed(r.ISBN),
		Genre:         trimmed(r.Genre),
		Language:      trimmed(r.Language),
		Publisher:     trimmed(r.Publisher),
		Description:   trimmed(r.Description),
		Pages:         r.Pages,
	}
}

// BookResponse is the public view of a book. Optional fields are omitted when unset.
type BookResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Price         float64 `json:"price"`
	PublishedDate string  `json:"publishedDate,omitempty"`
	ISBN          string  `json:"isbn,omitempty"`
	Genre         string  `json:"genre,omitempty"`
	Language      string  `json:"language,omitempty"`
	Publisher     string  `json:"publisher,omitempty"`
	Description   string  `json:"description,omitempty"`
	Pages         int     `json:"pages,omitempty"`
}

// NewBookResponse maps a domain book.
func NewBookResponse(b *domain.Book) BookResponse {
	resp := BookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Price:       b.Price,
		ISBN:        b.ISBN,
		Genre:       b.Genre,
		Language:    b.Language,
		Publisher:   b.Publisher,
		Description: b.Description,
		Pages:       b.Pages,
	}
	if b.PublishedDate != nil {
		resp.PublishedDate = b.PublishedDate.UTC().Format(dateLayout)
	}
	return resp
}

// Pagination describes a page of results.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// BookListResponse is one page of books.
type BookListResponse struct {
	Books      []BookResponse `json:"books"`
	Pagination Pagination     `json:"pagination"`
}

// BookListQuery is the query string accepted by the list endpoint.
type BookListQuery struct {
	Title    string   `query:"title"`
	Author   string   `query:"author"`
	MinPrice *float64 `query:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice *float64 `query:"maxPrice" validate:"omitempty,gte=0"`
	Page     int      `query:"page" validate:"omitempty,gte=1"`
	Limit    int      `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

// CheckPriceRange rejects an inverted price range.
func (q BookListQuery) CheckPriceRange() error {
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return apperrors.NewValidationError("minPrice must not exceed maxPrice", nil)
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// parseDate expects input already validated against dateLayout.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseDatePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	return parseDate(*s)
}
