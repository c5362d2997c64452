package repository

import (
	"comparte/internal/models"

	"gorm.io/gorm"
)

type DonationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

func (r *DonationRepository) Create(d *models.Donation) error {
	return r.db.Create(d).Error
}

func (r *DonationRepository) GetByID(id uint) (*models.Donation, error) {
	var d models.Donation
	err := r.db.Preload("Images").First(&d, id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DonationRepository) List(limit, offset int) ([]models.Donation, error) {
	var list []models.Donation
	err := r.db.Preload("Images").Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *DonationRepository) ListByOwnerID(ownerID uint) ([]models.Donation, error) {
	var list []models.Donation
	err := r.db.Preload("Images").Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// ListWithLocation returns donations that have coordinates set. Used by the
// donor map; distance filtering happens in the handler via Haversine.
func (r *DonationRepository) ListWithLocation(status string) ([]models.Donation, error) {
	var list []models.Donation
	q := r.db.Preload("Images").Where("latitude IS NOT NULL AND longitude IS NOT NULL")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&list).Error
	return list, err
}

// Update saves the donation and replaces its image rows when images changed.
func (r *DonationRepository) Update(d *models.Donation, replaceImages bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Images").Save(d).Error; err != nil {
			return err
		}
		if !replaceImages {
			return nil
		}
		if err := tx.Unscoped().Where("donation_id = ?", d.ID).Delete(&models.DonationImage{}).Error; err != nil {
			return err
		}
		for i := range d.Images {
			d.Images[i].ID = 0
			d.Images[i].DonationID = d.ID
		}
		if len(d.Images) == 0 {
			return nil
		}
		return tx.Create(&d.Images).Error
	})
}

func (r *DonationRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("donation_id = ?", id).Delete(&models.DonationImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Donation{}, id).Error
	})
}
