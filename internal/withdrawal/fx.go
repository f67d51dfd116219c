package withdrawal

import (
	"github.com/urbanease/urbanease/internal/withdrawal/repository"
	"github.com/urbanease/urbanease/internal/withdrawal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("withdrawal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
