package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, serviceType *ServiceType) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ServiceType, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*ServiceType, error)
	List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]ServiceType, error)
}
