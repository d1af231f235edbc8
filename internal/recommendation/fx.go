package recommendation

import (
	"github.com/nivala/pricing/internal/recommendation/engine"
	"github.com/nivala/pricing/internal/recommendation/repository"
	"github.com/nivala/pricing/internal/recommendation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("recommendation.service",
	fx.Provide(engine.LoadWeights),
	fx.Provide(engine.New),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
