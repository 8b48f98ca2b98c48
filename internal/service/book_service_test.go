package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/book-store-service/internal/domain"
	"github.com/spec-kit/book-store-service/internal/repository"
	apperrors "github.com/spec-kit/book-store-service/pkg/util"
)

type mockBookRepo struct {
	created    *domain.Book
	lastFilter repository.BookFilter
	listResult []domain.Book
	listTotal  int64
	updatedBy  string
	err        error
}

func (m *mockBookRepo) Create(_ context.Context, book *domain.Book) error {
	if m.err != nil {
		return m.err
	}
	book.ID = "65f1c0ffee0000000000abcd"
	m.created = book
	return nil
}

func (m *mockBookRepo) GetByID(_ context.Context, id string) (*domain.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Book{ID: id, Title: "Dune"}, nil
}

func (m *mockBookRepo) List(_ context.Context, filter repository.BookFilter) ([]domain.Book, int64, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.listResult, m.listTotal, nil
}

func (m *mockBookRepo) Update(_ context.Context, id string, update domain.BookUpdate, updatedBy string) (*domain.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.updatedBy = updatedBy
	book := &domain.Book{ID: id, UpdatedBy: updatedBy}
	if update.Price != nil {
		book.Price = *update.Price
	}
	return book, nil
}

func (m *mockBookRepo) Delete(_ context.Context, _ string) error {
	return m.err
}

var caller = domain.Identity{UserID: "u1", Name: "Ada", Email: "ada@gmail.com"}

func TestBookServiceCreateAttributesCaller(t *testing.T) {
	repo := &mockBookRepo{}
	svc := NewBookService(repo, nil)

	book, err := svc.Create(context.Background(), &domain.Book{ID: "spoofed", Title: "Dune", Author: "Frank Herbert", UpdatedBy: "x"}, caller)
	require.NoError(t, err)
	assert.Equal(t, "65f1c0ffee0000000000abcd", book.ID)
	assert.Equal(t, "u1", repo.created.CreatedBy)
	assert.Empty(t, repo.created.UpdatedBy)
}

func TestBookServiceListPagination(t *testing.T) {
	repo := &mockBookRepo{listResult: []domain.Book{{Title: "A"}}, listTotal: 45}
	svc := NewBookService(repo, nil)

	page, err := svc.List(context.Background(), BookQuery{Page: 3, Limit: 20, Title: "a"})
	require.NoError(t, err)
	assert.Equal(t, 40, repo.lastFilter.Offset)
	assert.Equal(t, 20, repo.lastFilter.Limit)
	assert.Equal(t, "a", repo.lastFilter.Title)
	assert.Equal(t, 3, page.Pages)
	assert.EqualValues(t, 45, page.Total)

	page, err = svc.List(context.Background(), BookQuery{Page: -1, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPageSize, page.Limit)
	assert.Equal(t, 0, repo.lastFilter.Offset)

	page, err = svc.List(context.Background(), BookQuery{})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, page.Limit)
}

func TestBookServiceUpdate(t *testing.T) {
	repo := &mockBookRepo{}
	svc := NewBookService(repo, nil)

	_, err := svc.Update(context.Background(), "id", domain.BookUpdate{}, caller)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	price := 3.5
	book, err := svc.Update(context.Background(), "id", domain.BookUpdate{Price: &price}, caller)
	require.NoError(t, err)
	assert.Equal(t, 3.5, book.Price)
	assert.Equal(t, "u1", repo.updatedBy)
}

func TestBookServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{repository.ErrInvalidID, http.StatusBadRequest},
		{repository.ErrNotFound, http.StatusNotFound},
		{repository.ErrConflict, http.StatusConflict},
	}
	for _, tt := range tests {
		svc := NewBookService(&mockBookRepo{err: tt.err}, nil)

		_, err := svc.Get(context.Background(), "x")
		var de *apperrors.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, tt.status, de.HTTPStatus)

		err = svc.Delete(context.Background(), "x", caller)
		require.ErrorAs(t, err, &de)
		assert.Equal(t, tt.status, de.HTTPStatus)
	}

	boom := errors.New("boom")
	svc := NewBookService(&mockBookRepo{err: boom}, nil)
	_, err := svc.Create(context.Background(), &domain.Book{}, caller)
	require.ErrorIs(t, err, boom)
}
