package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/agiletools/billingsync/internal/config"
	"github.com/agiletools/billingsync/internal/entitlement/domain"
	ledgerdomain "github.com/agiletools/billingsync/internal/ledger/domain"
	workspacedomain "github.com/agiletools/billingsync/internal/workspace/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Catalog   *config.CatalogHolder
	Ledger    ledgerdomain.Repository
	Documents workspacedomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	catalog   *config.CatalogHolder
	ledger    ledgerdomain.Repository
	documents workspacedomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("entitlement.service"),
		catalog:   p.Catalog,
		ledger:    p.Ledger,
		documents: p.Documents,
	}
}

func (s *Service) CheckCreationAllowed(ctx context.Context, req domain.CheckRequest) (domain.Decision, error) {
	entityType := strings.TrimSpace(req.EntityType)
	collection, ok := domain.EntityCollections[entityType]
	if !ok {
		return domain.Decision{}, domain.ErrUnknownEntityType
	}

	rec, err := s.ledger.GetCurrent(ctx, s.db, req.UserID)
	if err != nil {
		return domain.Decision{}, err
	}
	tier := string(ledgerdomain.TierFree)
	if rec != nil {
		tier = string(rec.Tier)
	}

	catalog := s.catalog.Get()
	limit := catalog.QuotaFor(tier, entityType)
	if limit == config.QuotaUnlimited {
		// Unlimited tier skips counting entirely.
		return domain.Decision{Allowed: true, CurrentCount: 0, Limit: limit, Tier: tier}, nil
	}

	count, err := s.countOwned(ctx, collection, entityType, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return domain.Decision{}, err
	}

	decision := domain.Decision{
		Allowed:      count < limit,
		CurrentCount: count,
		Limit:        limit,
		Tier:         tier,
	}

	s.log.Info("creation limit checked",
		zap.String("user_id", req.UserID),
		zap.String("entity_type", entityType),
		zap.String("tier", tier),
		zap.Int("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", decision.Allowed),
	)
	return decision, nil
}

// countOwned counts non-archived documents the caller owns among those they
// participate in. smart_todo lists match ownership by owner email or creator;
// everything else by creator only. Creator fields hold emails.
func (s *Service) countOwned(ctx context.Context, collection, entityType, email string) (int, error) {
	docs, err := s.documents.ListByType(ctx, s.db, collection)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, doc := range docs {
		if doc.IsArchived {
			continue
		}
		if !containsEmail(doc.ParticipantEmails, email) {
			continue
		}
		createdBy := strings.ToLower(strings.TrimSpace(doc.CreatedBy))
		if entityType == "smart_todo" {
			ownerEmail := strings.ToLower(strings.TrimSpace(doc.OwnerEmail))
			if ownerEmail == email || createdBy == email {
				count++
			}
			continue
		}
		if createdBy == email {
			count++
		}
	}
	return count, nil
}

func containsEmail(raw []byte, email string) bool {
	if email == "" || len(raw) == 0 {
		return false
	}
	var emails []string
	if err := json.Unmarshal(raw, &emails); err != nil {
		return false
	}
	for _, candidate := range emails {
		if strings.ToLower(strings.TrimSpace(candidate)) == email {
			return true
		}
	}
	return false
}
