package session

import (
	"github.com/nivala/pricing/internal/session/repository"
	"github.com/nivala/pricing/internal/session/service"
	"go.uber.org/fx"
)

var Module = fx.Module("session.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
