package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/book-store-service/internal/domain"
)

// BookFilter captures catalog search parameters.
type BookFilter struct {
	Title    string
	Author   string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
	Offset   int
}

// BookRepository encapsulates book persistence.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	List(ctx context.Context, filter BookFilter) ([]domain.Book, int64, error)
	Update(ctx context.Context, id string, update domain.BookUpdate, updatedBy string) (*domain.Book, error)
	Delete(ctx context.Context, id string) error
}

type bookDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Title         string             `bson:"title"`
	Author        string             `bson:"author"`
	Price         float64            `bson:"price"`
	PublishedDate *time.Time         `bson:"published_date,omitempty"`
	ISBN          string             `bson:"isbn,omitempty"`
	Genre         string             `bson:"genre,omitempty"`
	Language      string             `bson:"language,omitempty"`
	Publisher     string             `bson:"publisher,omitempty"`
	Description   string             `bson:"description,omitempty"`
	Pages         int                `bson:"pages,omitempty"`
	CreatedBy     string             `bson:"created_by,omitempty"`
	UpdatedBy     string             `bson:"updated_by,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func newBookDocument(b *domain.Book) bookDocument {
	return bookDocument{
		Title:         b.Title,
		Author:        b.Author,
		Price:         b.Price,
		PublishedDate: b.PublishedDate,
		ISBN:          b.ISBN,
		Genre:         b.Genre,
		Language:      b.Language,
		Publisher:     b.Publisher,
		Description:   b.Description,
		Pages:         b.Pages,
		CreatedBy:     b.CreatedBy,
		UpdatedBy:     b.UpdatedBy,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func (d bookDocument) toDomain() domain.Book {
	return domain.Book{
		ID:            d.ID.Hex(),
		Title:         d.Title,
		Author:        d.Author,
		Price:         d.Price,
		PublishedDate: d.PublishedDate,
		ISBN:          d.ISBN,
		Genre:         d.Genre,
		Language:      d.Language,
		Publisher:     d.Publisher,
		Description:   d.Description,
		Pages:         d.Pages,
		CreatedBy:     d.CreatedBy,
		UpdatedBy:     d.UpdatedBy,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

type bookRepository struct {
	coll *mongo.Collection
}

// NewBookRepository instantiates repository.
func NewBookRepository(coll *mongo.Collection) BookRepository {
	return &bookRepository{coll: coll}
}

// Create inserts book. The same title and author in any letter case yields ErrConflict.
func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	book.CreatedAt = now
	book.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, newBookDocument(book))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create book: %w", ErrConflict)
		}
		return fmt.Errorf("create book: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return errors.New("create book: unexpected inserted id type")
	}
	book.ID = oid.Hex()
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc bookDocument
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	book := doc.toDomain()
	return &book, nil
}

// List returns one page of books sorted by title, together with the total match count.
func (r *bookRepository) List(ctx context.Context, filter BookFilter) ([]domain.Book, int64, error) {
	query := bookQuery(filter)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "title", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer cur.Close(ctx)

	books := make([]domain.Book, 0)
	for cur.Next(ctx) {
		var doc bookDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode book: %w", err)
		}
		books = append(books, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate books: %w", err)
	}
	return books, total, nil
}

// Update applies the non-nil fields of update and returns the stored result.
func (r *bookRepository) Update(ctx context.Context, id string, update domain.BookUpdate, updatedBy string) (*domain.Book, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	set := bookUpdateSet(update)
	set = append(set,
		bson.E{Key: "updated_by", Value: updatedBy},
		bson.E{Key: "updated_at", Value: time.Now().UTC().Truncate(time.Millisecond)},
	)

	var doc bookDocument
	err = r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	switch {
	case err == nil:
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return nil, fmt.Errorf("update book: %w", ErrConflict)
	default:
		return nil, fmt.Errorf("update book: %w", err)
	}
	book := doc.toDomain()
	return &book, nil
}

func (r *bookRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func bookQuery(filter BookFilter) bson.D {
	query := bson.D{}
	if title := strings.TrimSpace(filter.Title); title != "" {
		query = append(query, bson.E{Key: "title", Value: containsIgnoreCase(title)})
	}
	if author := strings.TrimSpace(filter.Author); author != "" {
		query = append(query, bson.E{Key: "author", Value: containsIgnoreCase(author)})
	}

	price := bson.D{}
	if filter.MinPrice != nil {
		price = append(price, bson.E{Key: "$gte", Value: *filter.MinPrice})
	}
	if filter.MaxPrice != nil {
		price = append(price, bson.E{Key: "$lte", Value: *filter.MaxPrice})
	}
	if len(price) > 0 {
		query = append(query, bson.E{Key: "price", Value: price})
	}
	return query
}

// containsIgnoreCase matches the literal text anywhere in the field.
func containsIgnoreCase(text string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
}

func bookUpdateSet(u domain.BookUpdate) bson.D {
	set := bson.D{}
	add := func(key string, value any) {
		set = append(set, bson.E{Key: key, Value: value})
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Author != nil {
		add("author", *u.Author)
	}
	if u.Price != nil {
		add("price", *u.Price)
	}
	if u.PublishedDate != nil {
		add("published_date", *u.PublishedDate)
	}
	if u.ISBN != nil {
		add("isbn", *u.ISBN)
	}
	if u.Genre != nil {
		add("genre", *u.Genre)
	}
	if u.Language != nil {
		add("language", *u.Language)
	}
	if u.Publisher != nil {
		add("publisher", *u.Publisher)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Pages != nil {
		add("pages", *u.Pages)
	}
	return set
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
