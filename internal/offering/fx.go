package offering

import (
	"github.com/nivala/pricing/internal/offering/repository"
	"github.com/nivala/pricing/internal/offering/service"
	"go.uber.org/fx"
)

var Module = fx.Module("offering.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
