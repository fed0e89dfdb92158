package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"aclamission/internal/ledger"
	"aclamission/models"
)

func (s *Store) PledgesWithIndividuals(ctx context.Context) ([]models.Pledge, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var rows []models.Pledge
	err := s.db.WithContext(ctx).Preload("Individual").Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (s *Store) OutgoingsByStatus(ctx context.Context, statuses ...models.OutgoingStatus) ([]models.Outgoing, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var rows []models.Outgoing
	q := s.db.WithContext(ctx).Order("created_at ASC")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (s *Store) ListIndividuals(ctx context.Context, limit, offset int) ([]models.Individual, int64, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Individual{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]models.Individual, 0)
	err := limitOffset(s.db.WithContext(ctx).Order("name ASC"), limit, offset).Find(&items).Error
	return items, total, err
}

func (s *Store) CreateIndividual(ctx context.Context, ind *models.Individual) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	return s.db.WithContext(ctx).Create(ind).Error
}

func (s *Store) ListPledges(ctx context.Context, limit, offset int) ([]models.Pledge, int64, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Pledge{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]models.Pledge, 0)
	err := limitOffset(s.db.WithContext(ctx).Preload("Individual").Order("created_at DESC"), limit, offset).Find(&items).Error
	return items, total, err
}

func (s *Store) GetPledge(ctx context.Context, id string) (*models.Pledge, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var p models.Pledge
	if err := s.db.WithContext(ctx).Preload("Individual").Where("id = ?", id).Take(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// CreatePledge fails with ErrNotFound when the individual does not exist.
func (s *Store) CreatePledge(ctx context.Context, p *models.Pledge) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Individual{}).Where("id = ?", p.IndividualID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("individual %s: %w", p.IndividualID, ledger.ErrNotFound)
		}
		return tx.Omit("Individual").Create(p).Error
	})
}

func (s *Store) ListOutgoings(ctx context.Context, status models.OutgoingStatus, limit, offset int) ([]models.Outgoing, int64, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	q := s.db.WithContext(ctx).Model(&models.Outgoing{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]models.Outgoing, 0)
	err := limitOffset(q.Order("created_at DESC"), limit, offset).Find(&items).Error
	return items, total, err
}

func (s *Store) CreateOutgoing(ctx context.Context, o *models.Outgoing) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	return s.db.WithContext(ctx).Create(o).Error
}

// UpdateOutgoingStatus moves an outgoing forward through its workflow.
func (s *Store) UpdateOutgoingStatus(ctx context.Context, id string, next models.OutgoingStatus) (*models.Outgoing, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var o models.Outgoing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockByID(tx, id).Take(&o).Error; err != nil {
			return notFound(err)
		}
		if !o.Status.CanMoveTo(next) {
			return fmt.Errorf("%w: cannot move outgoing from %s to %s", ledger.ErrValidation, o.Status, next)
		}
		o.Status = next
		return tx.Model(&models.Outgoing{}).Where("id = ?", id).Update("status", next).Error
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}
