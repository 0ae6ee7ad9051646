package identity

import (
	"github.com/agiletools/billingsync/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(service.NewResolver),
)
