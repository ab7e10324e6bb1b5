package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/terra-tranquil-api/internal/logger"
	"github.com/iliyamo/terra-tranquil-api/internal/metrics"
	"github.com/iliyamo/terra-tranquil-api/internal/model"
	"github.com/iliyamo/terra-tranquil-api/internal/repository"
)

// allCategories disables the category filter.
const allCategories = "all"

// RegisterBusinessInput carries the caller-supplied fields of a new business.
type RegisterBusinessInput struct {
	Name        string
	Category    string
	Location    string
	Website     *string
	Description *string
	LogoURL     *string
	HeroImage   *string
	EcoChecks   []bool
	EcoScore    *int
}

// Directory lists, fetches and registers businesses.
type Directory struct {
	businesses BusinessStore
	log        *logger.Logger
}

func NewDirectory(b BusinessStore, log *logger.Logger) *Directory {
	if b == nil || log == nil {
		panic("nil dependency passed to NewDirectory")
	}
	return &Directory{businesses: b, log: log}
}

// ListBusinesses filters by name substring and exact category ("all" or
// empty matches every category).  A store failure yields an empty list and
// degraded=true; such a result must not be cached.
func (d *Directory) ListBusinesses(ctx context.Context, search, category string) (out []model.Business, degraded bool) {
	category = strings.TrimSpace(category)
	if strings.EqualFold(category, allCategories) {
		category = ""
	}
	out, err := d.businesses.List(ctx, repository.BusinessFilter{
		Search:   strings.TrimSpace(search),
		Category: category,
		Limit:    repository.ListLimit,
	})
	if err != nil {
		metrics.DirectoryDegraded.Inc()
		d.log.Warn("directory listing degraded to empty result", "error", err)
		return []model.Business{}, true
	}
	return out, false
}

// GetBusiness fetches one business by id.
func (d *Directory) GetBusiness(ctx context.Context, id string) (model.Business, error) {
	return d.businesses.GetByID(ctx, id)
}

// RegisterBusiness stores a new business.  A non-empty checklist always
// decides the score; otherwise the caller's score or the default is used.
func (d *Directory) RegisterBusiness(ctx context.Context, in RegisterBusinessInput) (model.Business, error) {
	b := model.Business{
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Location:    strings.TrimSpace(in.Location),
		Website:     in.Website,
		Description: in.Description,
		LogoURL:     in.LogoURL,
		HeroImage:   in.HeroImage,
		EcoChecks:   in.EcoChecks,
		EcoScore:    model.DefaultEcoScore,
	}
	if b.Name == "" || b.Category == "" || b.Location == "" {
		return model.Business{}, fmt.Errorf("%w: name, category and location are required", ErrInvalidArgument)
	}
	switch {
	case len(in.EcoChecks) > 0:
		b.EcoScore = model.EcoScore(in.EcoChecks)
	case in.EcoScore != nil:
		if *in.EcoScore < model.MinEcoScore || *in.EcoScore > model.MaxEcoScore {
			return model.Business{}, fmt.Errorf("%w: eco_score must be between 0 and 100", ErrInvalidArgument)
		}
		b.EcoScore = *in.EcoScore
	}
	if err := d.businesses.Create(ctx, &b); err != nil {
		return model.Business{}, err
	}
	d.log.Info("business registered", "business_id", b.ID, "name", b.Name, "eco_score", b.EcoScore)
	return b, nil
}
