package booking

import (
	"github.com/urbanease/urbanease/internal/booking/repository"
	"github.com/urbanease/urbanease/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
