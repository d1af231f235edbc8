package adminkey

import (
	"github.com/nivala/pricing/internal/adminkey/repository"
	"github.com/nivala/pricing/internal/adminkey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("adminkey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
