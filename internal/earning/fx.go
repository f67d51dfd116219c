package earning

import (
	"github.com/urbanease/urbanease/internal/earning/repository"
	"github.com/urbanease/urbanease/internal/earning/service"
	"go.uber.org/fx"
)

var Module = fx.Module("earning.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
