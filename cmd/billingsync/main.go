package main

import (
	"github.com/agiletools/billingsync/internal/clock"
	"github.com/agiletools/billingsync/internal/config"
	"github.com/agiletools/billingsync/internal/entitlement"
	"github.com/agiletools/billingsync/internal/identity"
	"github.com/agiletools/billingsync/internal/ledger"
	"github.com/agiletools/billingsync/internal/migration"
	"github.com/agiletools/billingsync/internal/observability"
	"github.com/agiletools/billingsync/internal/provider"
	"github.com/agiletools/billingsync/internal/reconciler"
	"github.com/agiletools/billingsync/internal/server"
	"github.com/agiletools/billingsync/internal/sweep"
	"github.com/agiletools/billingsync/internal/workspace"
	"github.com/agiletools/billingsync/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		ledger.Module,
		identity.Module,
		workspace.Module,
		provider.Module,
		reconciler.Module,
		entitlement.Module,
		sweep.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
