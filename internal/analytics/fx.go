package analytics

import (
	"github.com/nivala/pricing/internal/analytics/domain"
	"github.com/nivala/pricing/internal/analytics/repository"
	"github.com/nivala/pricing/internal/analytics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(domain.LoadConfig),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
