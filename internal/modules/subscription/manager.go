package subscription

import (
	"context"
	"errors"

	"github.com/trustnet/core/internal/models"
	"github.com/trustnet/core/internal/pkg/apierror"
	"go.uber.org/zap"
)

// Topic durably registers an email address for future broadcast
// notifications. Registration is fire-and-forget from the manager's
// perspective: the subscription's truth lives in the store record.
type Topic interface {
	Register(ctx context.Context, email string) error
}

// Status is the read-side view of a user's opt-in state. Email is nil
// when no record exists.
type Status struct {
	Subscribed bool    `json:"subscribed"`
	Email      *string `json:"email"`
}

// Manager owns the lifecycle of a user's opt-in for threat-verification
// emails. The three mutating operations differ precisely in their
// creation semantics: AutoSubscribe never overrides, Subscribe always
// overwrites, Toggle never creates.
type Manager struct {
	store Store
	topic Topic
	log   *zap.Logger
}

func NewManager(store Store, topic Topic, log *zap.Logger) *Manager {
	return &Manager{store: store, topic: topic, log: log}
}

// AutoSubscribe opts the user in only when no record exists yet.
// Repeated calls are no-ops, and an explicit opt-out is never flipped
// back on. The email is taken from the caller's verified credential.
func (m *Manager) AutoSubscribe(ctx context.Context, userID, email string) error {
	rec := &models.SubscriptionModel{
		UserID:     userID,
		Email:      email,
		Subscribed: true,
	}
	if err := m.store.PutIfAbsent(ctx, rec); err != nil {
		return apierror.Wrap(apierror.KindDependency, "subscription store unavailable", err)
	}
	return nil
}

// Subscribe unconditionally opts the user in, overwriting any prior
// state, and registers the email on the notification topic.
func (m *Manager) Subscribe(ctx context.Context, userID, email string) error {
	if userID == "" {
		return apierror.New(apierror.KindValidation, "user id is required")
	}
	if email == "" {
		return apierror.New(apierror.KindValidation, "email is required")
	}

	rec := &models.SubscriptionModel{
		UserID:     userID,
		Email:      email,
		Subscribed: true,
	}
	if err := m.store.PutAlways(ctx, rec); err != nil {
		return apierror.Wrap(apierror.KindDependency, "subscription store unavailable", err)
	}

	if m.topic != nil {
		if err := m.topic.Register(ctx, email); err != nil {
			m.log.Warn("topic registration failed",
				zap.String("user", userID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// GetStatus reports the user's opt-in state. Absence of a record is a
// valid state, not a fault: it reads as not subscribed with no email.
func (m *Manager) GetStatus(ctx context.Context, userID string) (Status, error) {
	rec, err := m.store.Get(ctx, userID)
	if err != nil {
		return Status{}, apierror.Wrap(apierror.KindDependency, "subscription store unavailable", err)
	}
	if rec == nil {
		return Status{Subscribed: false, Email: nil}, nil
	}
	email := rec.Email
	return Status{Subscribed: rec.Subscribed, Email: &email}, nil
}

// Toggle sets the subscribed flag of an existing record. A user without
// a record cannot be toggled: the store's precondition failure surfaces
// as a not-subscribed error, never as a silent create.
func (m *Manager) Toggle(ctx context.Context, userID string, enabled bool) error {
	if userID == "" {
		return apierror.New(apierror.KindValidation, "user id is required")
	}
	if err := m.store.UpdateIfPresent(ctx, userID, enabled); err != nil {
		if errors.Is(err, ErrAbsent) {
			return apierror.New(apierror.KindNotSubscribed, "no subscription found, must subscribe first")
		}
		return apierror.Wrap(apierror.KindDependency, "subscription store unavailable", err)
	}
	return nil
}
