package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/trustnet/core/internal/models"
	pkgmail "github.com/trustnet/core/internal/pkg/mail"
	"github.com/trustnet/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	taskTypeWelcome   = "subscription.registered"
	taskTypeBroadcast = "threat.verified"

	dequeueWait = 5 * time.Second
)

// Service fans out notification emails off the request path. Producers
// enqueue onto the redis task queue; Run consumes until the context is
// cancelled.
type Service struct {
	db      *gorm.DB
	queue   *taskqueue.Service
	mailer  *pkgmail.Sender
	log     *zap.Logger
	siteURL string
}

func New(db *gorm.DB, queue *taskqueue.Service, mailer *pkgmail.Sender, log *zap.Logger, siteURL string) *Service {
	return &Service{db: db, queue: queue, mailer: mailer, log: log, siteURL: siteURL}
}

type welcomePayload struct {
	Email string `json:"email"`
}

type broadcastPayload struct {
	ThreatID string `json:"threat_id"`
}

// Register implements the subscription manager's Topic capability: it
// durably enqueues a welcome notification for the address. Duplicate
// registrations within the dedup window collapse into one task.
func (s *Service) Register(ctx context.Context, email string) error {
	_, err := s.queue.Enqueue(ctx, taskTypeWelcome, welcomePayload{Email: email}, email)
	return err
}

// BroadcastThreatVerified enqueues a fan-out to every subscribed user.
// De-duplicated per threat so repeated verification attempts cannot
// double-send.
func (s *Service) BroadcastThreatVerified(ctx context.Context, threatID string) error {
	_, err := s.queue.Enqueue(ctx, taskTypeBroadcast, broadcastPayload{ThreatID: threatID}, threatID)
	return err
}

// Run consumes the queue until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := s.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if errors.Is(err, taskqueue.ErrEmpty) || ctx.Err() != nil {
				continue
			}
			s.log.Warn("notifier dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		runErr := s.dispatch(ctx, task)
		if err := s.queue.Finish(ctx, task, runErr); err != nil {
			s.log.Warn("notifier task finish failed", zap.String("task", task.ID), zap.Error(err))
		}
		if runErr != nil {
			s.log.Error("notifier task failed",
				zap.String("task", task.ID),
				zap.String("type", task.Type),
				zap.Error(runErr),
			)
		}
	}
}

func (s *Service) dispatch(ctx context.Context, task *taskqueue.Task) error {
	switch task.Type {
	case taskTypeWelcome:
		var p welcomePayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return err
		}
		return s.mailer.SendWelcome(p.Email, pkgmail.WelcomeData{
			Email:   p.Email,
			SiteURL: s.siteURL,
		})
	case taskTypeBroadcast:
		var p broadcastPayload
		if err := json.Unmarshal(task.Payload, &p); err != nil {
			return err
		}
		return s.broadcast(ctx, p.ThreatID)
	default:
		return fmt.Errorf("unknown task type %q", task.Type)
	}
}

func (s *Service) broadcast(ctx context.Context, threatID string) error {
	var threat models.ThreatModel
	if err := s.db.WithContext(ctx).First(&threat, "id = ?", threatID).Error; err != nil {
		return err
	}

	var subs []models.SubscriptionModel
	if err := s.db.WithContext(ctx).Where("subscribed = ?", true).Find(&subs).Error; err != nil {
		return err
	}

	data := pkgmail.ThreatVerifiedData{
		ThreatType:  string(threat.Type),
		ThreatValue: threat.Value,
		Severity:    threat.Severity,
	}
	if s.siteURL != "" {
		data.DetailURL = fmt.Sprintf("%s/threats/%s", s.siteURL, threat.ID)
	}

	sent := 0
	for _, sub := range subs {
		if err := s.mailer.SendThreatVerified(sub.Email, data); err != nil {
			s.log.Warn("broadcast email failed",
				zap.String("threat", threatID),
				zap.String("user", sub.UserID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	s.log.Info("threat verification broadcast",
		zap.String("threat", threatID),
		zap.Int("subscribers", len(subs)),
		zap.Int("sent", sent),
	)
	return nil
}
