package main

import (
	"github.com/agiletools/billingsync/internal/clock"
	"github.com/agiletools/billingsync/internal/config"
	"github.com/agiletools/billingsync/internal/ledger"
	"github.com/agiletools/billingsync/internal/migration"
	"github.com/agiletools/billingsync/internal/observability"
	"github.com/agiletools/billingsync/internal/sweep"
	"github.com/agiletools/billingsync/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Only the trial sweep runs here. No HTTP server.
		ledger.Module,
		sweep.Module,
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
