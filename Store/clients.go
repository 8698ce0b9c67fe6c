package Store

import (
	"context"
	"fmt"
	"strings"

	"ClientMax/Models"

	"gorm.io/gorm"
)

// ClientStore is read-mostly; clients are maintained outside the core.
type ClientStore struct {
	DB *gorm.DB
}

func (s *ClientStore) List(ctx context.Context) ([]Models.Client, error) {
	var clients []Models.Client
	if err := s.DB.WithContext(ctx).Order("company_name").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (s *ClientStore) Get(ctx context.Context, id string) (Models.Client, error) {
	var c Models.Client
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return Models.Client{}, notFound("client", id, err)
	}
	return c, nil
}

// AtRisk returns warning and critical clients, lowest health score first.
func (s *ClientStore) AtRisk(ctx context.Context, limit int) ([]Models.Client, error) {
	q := s.DB.WithContext(ctx).
		Where("health_status IN ?", []Models.HealthStatus{Models.HealthWarning, Models.HealthCritical}).
		Order("health_score ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var clients []Models.Client
	if err := q.Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list at-risk clients: %w", err)
	}
	return clients, nil
}

// Create is used by seeding and tests.
func (s *ClientStore) Create(ctx context.Context, c Models.Client) (Models.Client, error) {
	if strings.TrimSpace(c.CompanyName) == "" {
		return Models.Client{}, Models.Invalid("company_name", "is required")
	}
	if c.HealthScore < 0 || c.HealthScore > 100 {
		return Models.Client{}, Models.Invalid("health_score", "must be between 0 and 100")
	}
	if err := s.DB.WithContext(ctx).Create(&c).Error; err != nil {
		return Models.Client{}, &Models.ValidationError{Message: err.Error()}
	}
	return c, nil
}
