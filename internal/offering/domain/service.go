package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*ServiceType, error)
	Get(ctx context.Context, id string) (*ServiceType, error)
	List(ctx context.Context, activeOnly bool) ([]ServiceType, error)
}

type CreateRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var (
	ErrInvalidCode   = errors.New("invalid_code")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidID     = errors.New("invalid_id")
	ErrDuplicateCode = errors.New("duplicate_code")
	ErrNotFound      = errors.New("not_found")
)
