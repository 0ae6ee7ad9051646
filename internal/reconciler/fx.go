package reconciler

import (
	"github.com/agiletools/billingsync/internal/reconciler/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconciler",
	fx.Provide(service.New),
)
