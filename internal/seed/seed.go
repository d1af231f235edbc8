// Package seed installs the baseline rows a fresh deployment needs: the
// bookable service types with starting prices, and optionally a bootstrap
// admin key. Every function is idempotent so startup can run them each time.
package seed

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	adminkeydomain "github.com/nivala/pricing/internal/adminkey/domain"
	offeringdomain "github.com/nivala/pricing/internal/offering/domain"
	pricingdomain "github.com/nivala/pricing/internal/pricing/domain"
	"gorm.io/gorm"
)

type serviceTypeSeed struct {
	Code       string
	Name       string
	PriceMinor int64
}

var defaultServiceTypes = []serviceTypeSeed{
	{Code: "guidance_session", Name: "Guidance Session", PriceMinor: 2900},
	{Code: "video_consultation", Name: "Video Consultation", PriceMinor: 4900},
	{Code: "written_reading", Name: "Written Reading", PriceMinor: 1900},
}

// EnsureServiceTypes inserts the default offerings and their starting prices
// if they are missing. Existing rows are never touched.
func EnsureServiceTypes(db *gorm.DB) error {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	for _, st := range defaultServiceTypes {
		var existing offeringdomain.ServiceType
		err := db.Where("code = ?", st.Code).First(&existing).Error
		switch {
		case err == nil:
			// Present; leave the operator's edits alone.
		case errors.Is(err, gorm.ErrRecordNotFound):
			existing = offeringdomain.ServiceType{
				ID:     node.Generate(),
				Code:   st.Code,
				Name:   st.Name,
				Active: true,
			}
			if err := db.Create(&existing).Error; err != nil {
				return err
			}
		default:
			return err
		}

		var price pricingdomain.EffectivePrice
		err = db.Where("service_type_id = ?", existing.ID).First(&price).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = db.Create(&pricingdomain.EffectivePrice{
				ServiceTypeID: existing.ID,
				PriceMinor:    st.PriceMinor,
				Currency:      "USD",
				UpdatedBy:     "seed",
			}).Error
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// EnsureBootstrapAdminKey registers the operator-supplied key so a fresh
// install can reach the admin API before any key has been issued.
func EnsureBootstrapAdminKey(db *gorm.DB, rawKey string) error {
	hash := adminkeydomain.HashKey(rawKey)

	var existing adminkeydomain.AdminAPIKey
	err := db.Where("key_hash = ?", hash).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}
	return db.Create(&adminkeydomain.AdminAPIKey{
		ID:       node.Generate(),
		Name:     "bootstrap",
		KeyHash:  hash,
		Scopes:   "admin",
		IsActive: true,
	}).Error
}
