package seed

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	catalogdomain "github.com/edukita/kertas/internal/catalog/domain"
	paymentsdomain "github.com/edukita/kertas/internal/payments/domain"
	schooldomain "github.com/edukita/kertas/internal/school/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&schooldomain.School{},
		&catalogdomain.DocumentType{},
		&paymentsdomain.CreditPackage{},
	))
	return db
}

func TestEnsureDefaultSchoolIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, EnsureDefaultSchool(db))
	require.NoError(t, EnsureDefaultSchool(db))

	var count int64
	require.NoError(t, db.Model(&schooldomain.School{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var school schooldomain.School
	require.NoError(t, db.Where("slug = ?", "default").First(&school).Error)
	assert.True(t, school.Active)
}

func TestEnsureDefaultSchoolWithFixedID(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, EnsureDefaultSchoolWithID(db, 1))

	var school schooldomain.School
	require.NoError(t, db.Where("slug = ?", "default").First(&school).Error)
	assert.Equal(t, int64(1), school.ID)

	// A different id on the next boot does not replace the existing row.
	require.NoError(t, EnsureDefaultSchoolWithID(db, 2))
	var count int64
	require.NoError(t, db.Model(&schooldomain.School{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.Error(t, EnsureDefaultSchoolWithID(db, 0))
}

func TestEnsureBaseDataSeedsCatalogAndPackages(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, EnsureBaseData(db))

	var typeCount int64
	require.NoError(t, db.Model(&catalogdomain.DocumentType{}).Count(&typeCount).Error)
	assert.Equal(t, int64(6), typeCount)

	var packageCount int64
	require.NoError(t, db.Model(&paymentsdomain.CreditPackage{}).Count(&packageCount).Error)
	assert.Equal(t, int64(3), packageCount)

	var reportCard catalogdomain.DocumentType
	require.NoError(t, db.Where("code = ?", "report_card").First(&reportCard).Error)
	assert.Equal(t, "Rapor", reportCard.NameID)
	assert.Equal(t, int64(2), reportCard.CreditsRequired)
	assert.True(t, reportCard.IsActive)
}

func TestEnsureBaseDataKeepsOperatorEdits(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, EnsureBaseData(db))

	require.NoError(t, db.Model(&catalogdomain.DocumentType{}).
		Where("code = ?", "report_card").
		Update("credits_required", 10).Error)

	require.NoError(t, EnsureBaseData(db))

	var reportCard catalogdomain.DocumentType
	require.NoError(t, db.Where("code = ?", "report_card").First(&reportCard).Error)
	assert.Equal(t, int64(10), reportCard.CreditsRequired)

	var typeCount int64
	require.NoError(t, db.Model(&catalogdomain.DocumentType{}).Count(&typeCount).Error)
	assert.Equal(t, int64(6), typeCount)
}
