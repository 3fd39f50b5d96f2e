package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "resinbay/internal/log"
	"resinbay/models"
)

// New returns an in-memory sqlite database seeded with representative
// workshop data.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:resinbay-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Vendor{},
		&models.Resin{},
		&models.Bottle{},
		&models.Setting{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte("workshop"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:         "Mori Workshop",
		Email:        "mori@resinbay.app",
		PasswordHash: string(password),
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}

	anycolor := models.Vendor{Name: "Anycolor", Comment: "Fast shipping, consistent lots."}
	polymaker := models.Vendor{Name: "Polymaker"}
	for _, vendor := range []*models.Vendor{&anycolor, &polymaker} {
		if err := db.WithContext(ctx).Create(vendor).Error; err != nil {
			return err
		}
	}

	charcoal := models.Resin{
		Name:          "Standard Charcoal Black",
		VendorID:      &anycolor.ID,
		Material:      "ABS-Like",
		Price:         24.99,
		Density:       1.1,
		Weight:        1000,
		BottleWeight:  140,
		ArticleNumber: "AC-CB-1000",
		CureTemp:      35,
		CureTime:      90,
		WashTime:      120,
		ColorHex:      "1B1B1B",
	}
	aqua := models.Resin{
		Name:         "Water-Washable Aqua",
		VendorID:     &polymaker.ID,
		Material:     "Water-Washable",
		Price:        31.50,
		Density:      1.08,
		Weight:       500,
		BottleWeight: 95,
		ColorHex:     "3FB8C4",
	}
	mystery := models.Resin{
		Name:     "Sample Lot (unlabelled)",
		Material: "Standard",
		Density:  1.1,
	}
	for _, resin := range []*models.Resin{&charcoal, &aqua, &mystery} {
		if err := db.WithContext(ctx).Create(resin).Error; err != nil {
			return err
		}
	}

	opened := time.Now().UTC().Add(-72 * time.Hour)
	bottles := []models.Bottle{
		{ResinID: charcoal.ID, UsedWeight: 212.5, FirstUsed: &opened, LastUsed: &opened, Location: "Shelf A", LotNr: "2406-118"},
		{ResinID: charcoal.ID, UsedWeight: 0, Location: "Shelf A", LotNr: "2406-119"},
		{ResinID: aqua.ID, UsedWeight: 430, FirstUsed: &opened, Location: "Cabinet 2", Comment: "Keep away from sunlight."},
		{ResinID: mystery.ID, UsedWeight: 80, Location: "Bench", Archived: true},
	}
	for _, bottle := range bottles {
		bottleCopy := bottle
		if err := db.WithContext(ctx).Create(&bottleCopy).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
