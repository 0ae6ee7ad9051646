package workspace

import (
	"github.com/agiletools/billingsync/internal/workspace/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("workspace",
	fx.Provide(repository.Provide),
)
