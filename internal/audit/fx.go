package audit

import (
	"github.com/nivala/pricing/internal/audit/repository"
	"github.com/nivala/pricing/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
