// Package service holds the directory and impact workflows.  Services depend
// on the small store interfaces below; the repository package provides MySQL
// and in-memory implementations.
package service

import (
	"context"
	"errors"

	"github.com/iliyamo/terra-tranquil-api/internal/model"
	"github.com/iliyamo/terra-tranquil-api/internal/queue"
	"github.com/iliyamo/terra-tranquil-api/internal/repository"
)

// ErrInvalidArgument marks input that fails the service's own checks.
var ErrInvalidArgument = errors.New("invalid argument")

type BusinessStore interface {
	Create(ctx context.Context, b *model.Business) error
	GetByID(ctx context.Context, id string) (model.Business, error)
	List(ctx context.Context, f repository.BusinessFilter) ([]model.Business, error)
	Count(ctx context.Context) (int64, error)
}

type VisitStore interface {
	Create(ctx context.Context, v *model.Visit) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Visit, error)
}

// ImpactStore must make Increment and CreateIfAbsent atomic per user id,
// and SetLevel a conditional write on the current visit count.
type ImpactStore interface {
	Get(ctx context.Context, userID string) (model.Impact, error)
	CreateIfAbsent(ctx context.Context, userID, username string) error
	Increment(ctx context.Context, userID, username string, points int) error
	SetLevel(ctx context.Context, userID string, visits, level int) (bool, error)
}

// EventPublisher delivers visit events.  Failures never fail a request.
type EventPublisher interface {
	PublishVisitLogged(ctx context.Context, ev queue.VisitLoggedEvent) error
}

type noopPublisher struct{}

func (noopPublisher) PublishVisitLogged(context.Context, queue.VisitLoggedEvent) error { return nil }
