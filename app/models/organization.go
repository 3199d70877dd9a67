package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	OrgStatusActive   = "active"
	OrgStatusDisabled = "disabled"
)

// Organization is the billing tenant. It owns subscriptions and
// entitlements and carries the linked Stripe customer.
type Organization struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=2,max=150"`
	Slug             string         `gorm:"type:varchar(150);not null;uniqueIndex" json:"slug" validate:"required,min=2,max=150"`
	Status           string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active disabled"`
	StripeCustomerID string         `gorm:"type:varchar(191);default:null;index" json:"stripe_customer_id"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (o *Organization) Validate() error {
	v := validator.New()

	return v.Struct(o)
}

// BeforeSave rejects invalid rows on any GORM create or save.
func (o *Organization) BeforeSave(tx *gorm.DB) error {
	return o.Validate()
}

// FindOrganizationByID loads an organization by primary key.
func FindOrganizationByID(db *gorm.DB, id uint) (*Organization, error) {
	var org Organization
	if err := db.First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// DeleteOrganization soft-deletes an organization together with its
// subscriptions in a single transaction.
func DeleteOrganization(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", id).Delete(&Subscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Organization{}, id).Error
	})
}
