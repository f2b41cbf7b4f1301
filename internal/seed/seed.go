package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	catalogdomain "github.com/edukita/kertas/internal/catalog/domain"
	paymentsdomain "github.com/edukita/kertas/internal/payments/domain"
	schooldomain "github.com/edukita/kertas/internal/school/domain"
)

const (
	defaultSchoolName = "Default"
	defaultSchoolSlug = "default"
)

// EnsureDefaultSchool seeds the tenant whose permission records act as the
// platform-wide fallback tier.
func EnsureDefaultSchool(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}
	return ensureDefaultSchool(db, node.Generate().Int64())
}

// EnsureDefaultSchoolWithID seeds the fallback tenant under a fixed id so the
// DEFAULT_SCHOOL setting stays stable across restarts.
func EnsureDefaultSchoolWithID(db *gorm.DB, id int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if id <= 0 {
		return errors.New("seed school id must be positive")
	}
	return ensureDefaultSchool(db, id)
}

func ensureDefaultSchool(db *gorm.DB, id int64) error {
	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var school schooldomain.School
		err := tx.Where("slug = ?", defaultSchoolSlug).First(&school).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&schooldomain.School{
			ID:     id,
			Name:   defaultSchoolName,
			Slug:   defaultSchoolSlug,
			Active: true,
		}).Error
	})
}

// EnsureBaseData seeds the document catalog and purchasable credit packages.
// Existing rows are left untouched so operators can edit them freely.
func EnsureBaseData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDocumentTypes(ctx, tx, node); err != nil {
			return err
		}
		return ensureCreditPackages(ctx, tx, node)
	})
}

func ensureDocumentTypes(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	types := []catalogdomain.DocumentType{
		{Code: "report_card", Name: "Report Card", NameID: "Rapor", Category: "academic", CreditsRequired: 2, IsPopular: true},
		{Code: "transcript", Name: "Academic Transcript", NameID: "Transkrip Nilai", Category: "academic", CreditsRequired: 3},
		{Code: "enrollment_letter", Name: "Enrollment Letter", NameID: "Surat Keterangan Aktif", Category: "letter", CreditsRequired: 1, IsPopular: true},
		{Code: "transfer_letter", Name: "Transfer Letter", NameID: "Surat Pindah Sekolah", Category: "letter", CreditsRequired: 2},
		{Code: "graduation_certificate", Name: "Graduation Certificate", NameID: "Surat Keterangan Lulus", Category: "certificate", CreditsRequired: 3},
		{Code: "achievement_certificate", Name: "Achievement Certificate", NameID: "Piagam Penghargaan", Category: "certificate", CreditsRequired: 1},
	}

	for _, dt := range types {
		var existing catalogdomain.DocumentType
		err := tx.WithContext(ctx).Where("code = ?", dt.Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		dt.ID = node.Generate().Int64()
		dt.IsActive = true
		if err := tx.WithContext(ctx).Create(&dt).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureCreditPackages(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	packages := []paymentsdomain.CreditPackage{
		{Code: "starter", Name: "Starter", Credits: 50, BonusCredits: 0, PriceCents: 5000000, Currency: "IDR"},
		{Code: "standard", Name: "Standard", Credits: 200, BonusCredits: 20, PriceCents: 18000000, Currency: "IDR"},
		{Code: "premium", Name: "Premium", Credits: 500, BonusCredits: 75, PriceCents: 40000000, Currency: "IDR"},
	}

	for _, pkg := range packages {
		var existing paymentsdomain.CreditPackage
		err := tx.WithContext(ctx).Where("code = ?", pkg.Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		pkg.ID = node.Generate().Int64()
		pkg.Active = true
		if err := tx.WithContext(ctx).Create(&pkg).Error; err != nil {
			return err
		}
	}
	return nil
}
