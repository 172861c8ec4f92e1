package service

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/innovative-enterprises/whatsapp-agent/internal/auth"
	"github.com/innovative-enterprises/whatsapp-agent/internal/gateway"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type SubscriberDirectory interface {
	ListReminderCandidates(ctx context.Context) ([]models.ProviderSubscription, error)
}

type ReminderConfig struct {
	TemplateName string
	Language     string
	Location     *time.Location
	Concurrency  int
}

const (
	DefaultReminderConcurrency = 5
	day                        = 24 * time.Hour
)

// ==============================================
// DUE REMINDERS
// ==============================================

// DueReminders selects subscriptions whose expiry is exactly 30, 15, 7 or 1
// days after today. today should be midnight in the reporting timezone.
func DueReminders(subs []models.ProviderSubscription, today time.Time) []models.Reminder {
	var due []models.Reminder

	for _, sub := range subs {
		if sub.SubscriptionExpiry == nil || !sub.SubscriptionTier.Expires() {
			continue
		}

		days := DaysUntil(*sub.SubscriptionExpiry, today)
		if !isReminderDay(days) {
			continue
		}

		due = append(due, models.Reminder{
			Name:            sub.Name,
			PhoneNumber:     sub.PhoneNumber,
			Tier:            sub.SubscriptionTier,
			Expiry:          *sub.SubscriptionExpiry,
			DaysUntilExpiry: days,
		})
	}

	return due
}

// DaysUntil is ceil((expiry - today) / 1 day) counted in calendar days of
// today's location, so a DST change in between does not shift the result.
// today must be a midnight.
func DaysUntil(expiry, today time.Time) int {
	loc := today.Location()
	expiry = expiry.In(loc)
	expiryDay := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, loc)

	days := dateIndex(expiryDay) - dateIndex(today)
	if expiry.After(expiryDay) {
		days++
	}
	return days
}

// dateIndex numbers t's calendar date in its own location.
func dateIndex(t time.Time) int {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(date.Unix() / int64(day/time.Second))
}

func isReminderDay(days int) bool {
	for _, d := range models.ReminderIntervals {
		if days == d {
			return true
		}
	}
	return false
}

// StartOfDay returns midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ==============================================
// REMINDER SERVICE
// ==============================================

type ReminderService struct {
	directory SubscriberDirectory
	sender    TemplateSender
	cfg       ReminderConfig
	logger    *zap.Logger
	now       func() time.Time
	running   atomic.Bool
}

func NewReminderService(directory SubscriberDirectory, sender TemplateSender, cfg ReminderConfig, logger *zap.Logger) *ReminderService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultReminderConcurrency
	}

	return &ReminderService{
		directory: directory,
		sender:    sender,
		cfg:       cfg,
		logger:    logger.Named("reminders"),
		now:       time.Now,
	}
}

// RunDailyCheck sends every due reminder. A failed send is recorded in the
// summary and never stops the batch; only a directory read failure is fatal.
// Overlapping runs are refused with models.ErrRunInProgress.
func (s *ReminderService) RunDailyCheck(ctx context.Context) (*models.ReminderSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("reminder run already in progress, skipping")
		return nil, models.ErrRunInProgress
	}
	defer s.running.Store(false)

	ranAt := s.now()
	today := StartOfDay(ranAt, s.cfg.Location)

	subs, err := s.directory.ListReminderCandidates(ctx)
	if err != nil {
		s.logger.Error("failed to load subscriptions", zap.Error(err))
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	due := DueReminders(subs, today)
	results := make([]models.ReminderResult, len(due))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, r := range due {
		i, r := i, r
		g.Go(func() error {
			results[i] = s.send(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	summary := &models.ReminderSummary{
		Details: results,
		RanAt:   ranAt,
	}
	for _, r := range results {
		if r.Status == models.ReminderStatusSent {
			summary.NotificationsSent++
		} else {
			summary.Failed++
		}
	}

	s.logger.Info("reminder run complete",
		zap.Int("candidates", len(subs)),
		zap.Int("due", len(due)),
		zap.Int("sent", summary.NotificationsSent),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", s.now().Sub(ranAt)),
	)
	return summary, nil
}

func (s *ReminderService) send(ctx context.Context, r models.Reminder) models.ReminderResult {
	result := models.ReminderResult{Reminder: r, Status: models.ReminderStatusFailed}
	log := s.logger.With(
		zap.String("phone", auth.MaskPhone(r.PhoneNumber)),
		zap.Int("days_until_expiry", r.DaysUntilExpiry),
	)

	phone, err := auth.NormalizePhone(r.PhoneNumber)
	if err != nil {
		result.Error = err.Error()
		log.Warn("skipping reminder with invalid phone")
		return result
	}

	tpl := gateway.Template{
		Name:     s.cfg.TemplateName,
		Language: s.cfg.Language,
		BodyParams: []string{
			r.Name,
			string(r.Tier),
			strconv.Itoa(r.DaysUntilExpiry),
			r.Expiry.In(s.cfg.Location).Format("2006-01-02"),
		},
	}
	summary := fmt.Sprintf("[template:%s] %s subscription expires in %d day(s)", s.cfg.TemplateName, r.Tier, r.DaysUntilExpiry)

	if _, err := s.sender.SendTemplate(ctx, phone, tpl, summary); err != nil {
		result.Error = err.Error()
		log.Warn("reminder delivery failed", zap.Error(err))
		return result
	}

	result.Status = models.ReminderStatusSent
	return result
}
