package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/terra-tranquil-api/internal/logger"
	"github.com/iliyamo/terra-tranquil-api/internal/metrics"
	"github.com/iliyamo/terra-tranquil-api/internal/model"
	"github.com/iliyamo/terra-tranquil-api/internal/queue"
	"github.com/iliyamo/terra-tranquil-api/internal/repository"
)

const publishTimeout = 2 * time.Second

// LogVisitInput is a validated request to record one visit.
type LogVisitInput struct {
	UserID     string
	Username   string
	BusinessID string
}

// ImpactService records visits and maintains per-user impact totals.
type ImpactService struct {
	businesses    BusinessStore
	visits        VisitStore
	impacts       ImpactStore
	events        EventPublisher
	log           *logger.Logger
	levelAttempts int
}

// NewImpactService wires the workflow.  events may be nil to disable
// publishing; levelAttempts below 1 is treated as 1.
func NewImpactService(b BusinessStore, v VisitStore, i ImpactStore, events EventPublisher, log *logger.Logger, levelAttempts int) *ImpactService {
	if b == nil || v == nil || i == nil || log == nil {
		panic("nil dependency passed to NewImpactService")
	}
	if events == nil {
		events = noopPublisher{}
	}
	if levelAttempts < 1 {
		levelAttempts = 1
	}
	return &ImpactService{businesses: b, visits: v, impacts: i, events: events, log: log, levelAttempts: levelAttempts}
}

// LogVisit records a visit by in.UserID at in.BusinessID and returns the
// user's refreshed impact.  An unknown or malformed business id fails
// before anything is written.  Store failures are returned as-is; a visit
// that was already written stays written.
func (s *ImpactService) LogVisit(ctx context.Context, in LogVisitInput) (model.Impact, error) {
	imp, err := s.logVisit(ctx, in)
	metrics.VisitsLogged.WithLabelValues(visitResult(err)).Inc()
	return imp, err
}

func (s *ImpactService) logVisit(ctx context.Context, in LogVisitInput) (model.Impact, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return model.Impact{}, fmt.Errorf("%w: user_id is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Username) == "" {
		in.Username = model.DefaultUsername
	}

	b, err := s.businesses.GetByID(ctx, in.BusinessID)
	if err != nil {
		return model.Impact{}, err
	}

	visit := model.NewVisit(in.UserID, b)
	if err := s.visits.Create(ctx, &visit); err != nil {
		return model.Impact{}, err
	}
	if err := s.impacts.Increment(ctx, in.UserID, in.Username, visit.EcoPoints); err != nil {
		return model.Impact{}, err
	}
	if err := s.refreshLevel(ctx, in.UserID); err != nil {
		return model.Impact{}, err
	}
	imp, err := s.impacts.Get(ctx, in.UserID)
	if err != nil {
		return model.Impact{}, err
	}

	s.publish(ctx, queue.NewVisitLoggedEvent(visit, imp))
	return imp, nil
}

// refreshLevel recomputes terra_level from a fresh read of the visit count
// and writes it only if that count is still current.  When a concurrent
// visit moves the count in between, it re-reads and tries again.
func (s *ImpactService) refreshLevel(ctx context.Context, userID string) error {
	for attempt := 1; attempt <= s.levelAttempts; attempt++ {
		imp, err := s.impacts.Get(ctx, userID)
		if err != nil {
			return err
		}
		ok, err := s.impacts.SetLevel(ctx, userID, imp.Visits, model.DeriveLevel(imp.Visits))
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		metrics.LevelRefreshRetries.Inc()
		s.log.Debug("terra level write lost a race, retrying", "user_id", userID, "attempt", attempt)
	}
	return fmt.Errorf("%w: terra level refresh for %s gave up after %d attempts",
		repository.ErrUnavailable, userID, s.levelAttempts)
}

func (s *ImpactService) publish(ctx context.Context, ev queue.VisitLoggedEvent) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishVisitLogged(pubCtx, ev); err != nil {
		metrics.EventPublishFailures.Inc()
		s.log.Warn("publish visit event failed", "user_id", ev.UserID, "visit_id", ev.VisitID, "error", err)
	}
}

// GetImpact returns the user's impact, creating a zero record named
// username (or Guest) on first sight.  Counters are never touched.
func (s *ImpactService) GetImpact(ctx context.Context, userID, username string) (model.Impact, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Impact{}, fmt.Errorf("%w: user_id is required", ErrInvalidArgument)
	}
	imp, err := s.impacts.Get(ctx, userID)
	if err == nil {
		return imp, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Impact{}, err
	}
	if strings.TrimSpace(username) == "" {
		username = model.DefaultUsername
	}
	if err := s.impacts.CreateIfAbsent(ctx, userID, username); err != nil {
		return model.Impact{}, err
	}
	return s.impacts.Get(ctx, userID)
}

// ListVisits returns up to 100 of the user's visits, newest first.
func (s *ImpactService) ListVisits(ctx context.Context, userID string) ([]model.Visit, error) {
	return s.visits.ListByUser(ctx, userID, repository.ListLimit)
}

func visitResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrInvalidID), errors.Is(err, ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}
