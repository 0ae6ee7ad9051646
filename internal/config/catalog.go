package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// QuotaUnlimited marks a tier/resource pair with no creation limit. The
// entitlement gate treats it as "never count, always allow" rather than as a
// comparison value.
const QuotaUnlimited = -1

// DefaultQuota applies when a tier carries no explicit limit for a resource.
const DefaultQuota = 5

// Catalog is the hand-maintained mapping between the billing provider's
// identifiers and the internal tier model. It is an immutable snapshot:
// components read it per operation via CatalogHolder.Get.
type Catalog struct {
	// PriceTiers maps provider price IDs to tier names.
	PriceTiers map[string]string `mapstructure:"priceTiers"`
	// StatusMap maps provider subscription statuses to internal statuses.
	StatusMap map[string]string `mapstructure:"statusMap"`
	// Quotas maps tier -> resource type -> creation limit.
	Quotas map[string]map[string]int `mapstructure:"quotas"`
}

// TierForPrice resolves a provider price ID to a tier, defaulting to free.
func (c Catalog) TierForPrice(priceID string) string {
	if tier, ok := c.PriceTiers[strings.TrimSpace(priceID)]; ok {
		return tier
	}
	return "free"
}

// InternalStatus maps a provider status to the internal vocabulary. Unmapped
// statuses pass through unchanged.
func (c Catalog) InternalStatus(external string) string {
	external = strings.TrimSpace(external)
	if status, ok := c.StatusMap[external]; ok {
		return status
	}
	return external
}

// QuotaFor returns the creation limit for a tier/resource pair. Unknown tiers
// fall back to the free tier's limits.
func (c Catalog) QuotaFor(tier, resourceType string) int {
	limits, ok := c.Quotas[tier]
	if !ok {
		limits = c.Quotas["free"]
	}
	if limit, ok := limits[resourceType]; ok {
		return limit
	}
	return DefaultQuota
}

// DefaultCatalog returns the built-in mapping tables. Price IDs are the ones
// configured in the provider dashboard.
func DefaultCatalog() Catalog {
	return Catalog{
		PriceTiers: map[string]string{
			"price_premium_monthly": "premium",
			"price_premium_yearly":  "premium",
			"price_elite_monthly":   "elite",
			"price_elite_yearly":    "elite",
		},
		StatusMap: map[string]string{
			"active":             "active",
			"trialing":           "active",
			"past_due":           "past_due",
			"canceled":           "canceled",
			"unpaid":             "suspended",
			"incomplete":         "pending",
			"incomplete_expired": "expired",
		},
		Quotas: map[string]map[string]int{
			"free": {
				"estimation":    5,
				"eisenhower":    5,
				"smart_todo":    5,
				"retrospective": 5,
				"agile_project": 5,
			},
			"premium": {
				"estimation":    30,
				"eisenhower":    30,
				"smart_todo":    30,
				"retrospective": 30,
				"agile_project": 30,
			},
			"elite": {
				"estimation":    QuotaUnlimited,
				"eisenhower":    QuotaUnlimited,
				"smart_todo":    QuotaUnlimited,
				"retrospective": QuotaUnlimited,
				"agile_project": QuotaUnlimited,
			},
		},
	}
}

// CatalogHolder serves catalog snapshots and hot-reloads them when the
// underlying file changes.
type CatalogHolder struct {
	current atomic.Value // holds Catalog
}

// NewCatalogHolder loads catalog.yml when present, otherwise the defaults.
func NewCatalogHolder() (*CatalogHolder, error) {
	v := viper.New()

	v.SetConfigName("catalog")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/billingsync/config")
	v.AddConfigPath("/etc/billingsync")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BILLINGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &CatalogHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultCatalog())
		return holder, nil
	}

	cfg, err := unmarshalCatalog(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalCatalog(v)
		if err != nil {
			log.Printf("[catalog] reload failed: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[catalog] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Get returns the current catalog snapshot.
func (h *CatalogHolder) Get() Catalog {
	return h.current.Load().(Catalog)
}

// NewStaticCatalogHolder wraps a fixed catalog, for tests and tools.
func NewStaticCatalogHolder(cfg Catalog) *CatalogHolder {
	holder := &CatalogHolder{}
	holder.current.Store(cfg)
	return holder
}

func unmarshalCatalog(v *viper.Viper) (Catalog, error) {
	var cfg Catalog
	if err := v.UnmarshalKey("catalog", &cfg); err != nil {
		return Catalog{}, err
	}
	if err := validateCatalog(cfg); err != nil {
		return Catalog{}, err
	}
	return cfg, nil
}

func validateCatalog(cfg Catalog) error {
	if len(cfg.PriceTiers) == 0 {
		return errors.New("catalog.priceTiers cannot be empty")
	}
	if len(cfg.Quotas) == 0 {
		return errors.New("catalog.quotas cannot be empty")
	}
	if _, ok := cfg.Quotas["free"]; !ok {
		return errors.New("catalog.quotas must define the free tier")
	}
	return nil
}
