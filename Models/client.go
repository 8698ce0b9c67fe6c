package Models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientType string

const (
	ClientBrandOwner       ClientType = "brand_owner"
	ClientReseller         ClientType = "reseller"
	ClientWholesaler       ClientType = "wholesaler"
	ClientProductLauncher  ClientType = "product_launcher"
	ClientThirdPartySeller ClientType = "3p_seller"
)

type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthWarning   HealthStatus = "warning"
	HealthCritical  HealthStatus = "critical"
)

// Client is an agency customer tracked on the dashboard.
type Client struct {
	ID              string       `json:"id" gorm:"primaryKey;size:36"`
	CompanyName     string       `json:"company_name" gorm:"size:255;not null;index"`
	ContactName     string       `json:"contact_name" gorm:"size:255"`
	Email           string       `json:"email" gorm:"size:255"`
	ClientType      ClientType   `json:"client_type" gorm:"size:32"`
	HealthScore     int          `json:"health_score" gorm:"not null;default:0"`
	HealthStatus    HealthStatus `json:"health_status" gorm:"size:16;index"`
	MRR             float64      `json:"mrr"`
	AssignedManager *string      `json:"assigned_manager" gorm:"size:36"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// AtRisk reports whether the client needs attention on the dashboard.
func (c Client) AtRisk() bool {
	return c.HealthStatus == HealthWarning || c.HealthStatus == HealthCritical
}
