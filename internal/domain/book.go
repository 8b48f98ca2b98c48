package domain

import "time"

// Book is a catalog entry.
type Book struct {
	ID            string
	Title         string
	Author        string
	Price         float64
	PublishedDate *time.Time
	ISBN          string
	Genre         string
	Language      string
	Publisher     string
	Description   string
	Pages         int
	CreatedBy     string
	UpdatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BookUpdate carries the fields of a partial update; nil means unchanged.
type BookUpdate struct {
	Title         *string
	Author        *string
	Price         *float64
	PublishedDate *time.Time
	ISBN          *string
	Genre         *string
	Language      *string
	Publisher     *string
	Description   *string
	Pages         *int
}

// Empty reports whether no field is set.
func (u BookUpdate) Empty() bool {
	return u.Title == nil && u.Author == nil && u.Price == nil && u.PublishedDate == nil &&
		u.ISBN == nil && u.Genre == nil && u.Language == nil && u.Publisher == nil &&
		u.Description == nil && u.Pages == nil
}
