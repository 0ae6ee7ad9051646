package entitlement

import (
	"github.com/agiletools/billingsync/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement",
	fx.Provide(service.New),
)
