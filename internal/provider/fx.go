package provider

import (
	"github.com/agiletools/billingsync/internal/config"
	"github.com/agiletools/billingsync/internal/provider/domain"
	"github.com/agiletools/billingsync/internal/provider/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("provider",
	fx.Provide(newRegistry),
	fx.Provide(newClient),
)

func newRegistry(cfg config.Config) *Registry {
	return NewRegistry(
		stripe.NewAdapter(cfg.StripeWebhookSecret),
	)
}

func newClient(cfg config.Config) domain.Client {
	return stripe.NewClient(cfg.StripeSecretKey, cfg.StripeAPIBase)
}
