package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/dinehq/dinehq/internal/billing/domain"
	"github.com/dinehq/dinehq/internal/subscription/domain"
)

// SyncWithStripe implements domain.Service. It pulls the provider snapshot
// and replays it through the same apply path webhooks use, so a missed event
// can always be repaired by a sync. Applying the same snapshot twice is a
// no-op.
func (s *Service) SyncWithStripe(ctx context.Context, providerSubID string) domain.SyncResult {
	result := domain.SyncResult{Success: true}

	snapshot, err := s.provider.GetSubscription(ctx, providerSubID)
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	sub, err := s.repo.FindByProviderID(ctx, s.db, providerSubID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			result.Success = false
			result.Errors = append(result.Errors, err.Error())
			return result
		}

		created, err := s.createFromSnapshot(ctx, snapshot)
		if err != nil {
			result.Success = false
			result.Errors = append(result.Errors, err.Error())
			return result
		}
		if created {
			result.Changes = append(result.Changes, "subscription created")
		}
		return result
	}

	changes := diffSnapshot(sub, snapshot)
	if len(changes) == 0 {
		return result
	}

	if err := s.applySnapshot(ctx, sub, snapshot); err != nil {
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	result.Changes = changes
	return result
}

// HandleProviderEvent implements domain.Service. Events carry the provider
// subscription id; the authoritative state is always re-fetched rather than
// trusted from the event payload.
func (s *Service) HandleProviderEvent(ctx context.Context, event *billingdomain.Event) error {
	log := s.log.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("provider_subscription_id", event.SubscriptionID),
	)

	switch event.Type {
	case billingdomain.EventCheckoutCompleted,
		billingdomain.EventSubscriptionUpdated,
		billingdomain.EventPaymentFailed:
		snapshot, err := s.provider.GetSubscription(ctx, event.SubscriptionID)
		if err != nil {
			return err
		}

		sub, err := s.repo.FindByProviderID(ctx, s.db, event.SubscriptionID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if _, err := s.createFromSnapshot(ctx, snapshot); err != nil {
				return err
			}
			log.Info("subscription created from provider event")
			return nil
		}
		if err := s.applySnapshot(ctx, sub, snapshot); err != nil {
			return err
		}
		log.Info("subscription updated from provider event")
		return nil

	case billingdomain.EventSubscriptionDeleted:
		sub, err := s.repo.FindByProviderID(ctx, s.db, event.SubscriptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		now := s.clock.Now().UTC()
		sub.Status = domain.StatusCanceled
		sub.CancelAtPeriodEnd = false
		if sub.CanceledAt == nil {
			sub.CanceledAt = &now
		}
		sub.UpdatedAt = now
		if err := s.repo.UpdateVersioned(ctx, s.db, sub); err != nil {
			return err
		}
		log.Info("subscription canceled from provider event")
		return nil

	default:
		return nil
	}
}

// applySnapshot is the single write path that mirrors a provider snapshot
// onto the local row. Sync, webhooks, and updates all converge here.
func (s *Service) applySnapshot(ctx context.Context, sub *domain.Subscription, snap *billingdomain.Subscription) error {
	sub.Status = domain.SubscriptionStatus(snap.State)
	sub.CurrentPeriodStart = snap.CurrentPeriodStart
	sub.CurrentPeriodEnd = snap.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = snap.CancelAtPeriodEnd
	sub.CanceledAt = snap.CanceledAt
	sub.TrialStart = snap.TrialStart
	sub.TrialEnd = snap.TrialEnd

	if snap.PriceID != "" {
		plan, err := s.planRepo.FindByStripePriceID(ctx, s.db, snap.PriceID)
		if err == nil {
			sub.PlanID = plan.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	sub.UpdatedAt = s.clock.Now().UTC()
	return s.repo.UpdateVersioned(ctx, s.db, sub)
}

// createFromSnapshot inserts the local row for a provider subscription seen
// for the first time. The owning account comes from checkout metadata or the
// provider customer id.
func (s *Service) createFromSnapshot(ctx context.Context, snap *billingdomain.Subscription) (bool, error) {
	accountID, err := s.resolveSnapshotAccount(ctx, snap)
	if err != nil {
		return false, err
	}

	plan, err := s.planRepo.FindByStripePriceID(ctx, s.db, snap.PriceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domain.ErrPlanNotFound
		}
		return false, err
	}

	now := s.clock.Now().UTC()
	sub := &domain.Subscription{
		ID:                   s.genID.Generate(),
		AccountID:            accountID,
		PlanID:               plan.ID,
		Status:               domain.SubscriptionStatus(snap.State),
		CurrentPeriodStart:   snap.CurrentPeriodStart,
		CurrentPeriodEnd:     snap.CurrentPeriodEnd,
		CancelAtPeriodEnd:    snap.CancelAtPeriodEnd,
		CanceledAt:           snap.CanceledAt,
		TrialStart:           snap.TrialStart,
		TrialEnd:             snap.TrialEnd,
		StripeSubscriptionID: snap.ID,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.Insert(ctx, s.db, sub); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) resolveSnapshotAccount(ctx context.Context, snap *billingdomain.Subscription) (snowflake.ID, error) {
	if raw, ok := snap.Metadata["account_id"]; ok {
		if id, parseErr := snowflake.ParseString(raw); parseErr == nil {
			return id, nil
		}
	}

	account, err := s.accounts.FindByStripeCustomerID(ctx, s.db, snap.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrAccountNotFound
		}
		return 0, err
	}
	return account.ID, nil
}

// diffSnapshot names the fields a snapshot would change on the local row.
func diffSnapshot(sub *domain.Subscription, snap *billingdomain.Subscription) []string {
	var changes []string
	if sub.Status != domain.SubscriptionStatus(snap.State) {
		changes = append(changes, fmt.Sprintf("status: %s -> %s", sub.Status, snap.State))
	}
	if !sub.CurrentPeriodStart.Equal(snap.CurrentPeriodStart) || !sub.CurrentPeriodEnd.Equal(snap.CurrentPeriodEnd) {
		changes = append(changes, "billing period")
	}
	if sub.CancelAtPeriodEnd != snap.CancelAtPeriodEnd {
		changes = append(changes, fmt.Sprintf("cancel_at_period_end: %t -> %t", sub.CancelAtPeriodEnd, snap.CancelAtPeriodEnd))
	}
	if !equalTimePtr(sub.CanceledAt, snap.CanceledAt) {
		changes = append(changes, "canceled_at")
	}
	if !equalTimePtr(sub.TrialStart, snap.TrialStart) || !equalTimePtr(sub.TrialEnd, snap.TrialEnd) {
		changes = append(changes, "trial window")
	}
	return changes
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
