package migration

import (
	"strings"

	"github.com/agiletools/billingsync/internal/config"
	identitydomain "github.com/agiletools/billingsync/internal/identity/domain"
	ledgerdomain "github.com/agiletools/billingsync/internal/ledger/domain"
	workspacedomain "github.com/agiletools/billingsync/internal/workspace/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL migrations target postgres. Other dialects, used for
		// local development, fall back to the ORM schema sync.
		if !strings.EqualFold(cfg.DBType, "postgres") {
			return conn.AutoMigrate(
				&identitydomain.CustomerMapping{},
				&ledgerdomain.SubscriptionRecord{},
				&ledgerdomain.SubscriptionHistoryEntry{},
				&ledgerdomain.PaymentRecord{},
				&ledgerdomain.NotificationRecord{},
				&workspacedomain.Document{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
