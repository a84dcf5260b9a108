package booksvc

import (
	"context"
	"errors"

	"libraryrental/model"
	bookrepo "libraryrental/repository/book"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNotFound       = errors.New("book not found")
)

type Service interface {
	Create(ctx context.Context, b *model.Book) (int64, error)
	List(ctx context.Context) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
}

type service struct{ r bookrepo.Repo }

func New(r bookrepo.Repo) Service { return &service{r: r} }

func validate(b *model.Book) error {
	if b.Title == "" || b.Author == "" {
		return ErrInvalidPayload
	}
	if b.Cover != model.CoverHard && b.Cover != model.CoverSoft {
		return ErrInvalidPayload
	}
	if b.Inventory < 0 {
		return ErrInvalidPayload
	}
	if !b.DailyFee.GreaterThan(decimal.Zero) {
		return ErrInvalidPayload
	}
	return nil
}

func (s *service) Create(ctx context.Context, b *model.Book) (int64, error) {
	if err := validate(b); err != nil {
		return 0, err
	}
	return s.r.Create(ctx, b)
}

func (s *service) List(ctx context.Context) ([]model.Book, error) { return s.r.List(ctx) }

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) {
	return s.r.Detail(ctx, id)
}

func (s *service) Update(ctx context.Context, b *model.Book) error {
	if err := validate(b); err != nil {
		return err
	}
	ok, err := s.r.Update(ctx, b)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	ok, err := s.r.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
