package models

import (
	"fmt"

	"gorm.io/gorm"
)

// All returns every persisted model in dependency order.
func All() []any {
	return []any{
		&Course{},
		&Node{},
		&Relation{},
		&Content{},
		&StudentGrade{},
		&SyllabusDraft{},
	}
}

// Migrate runs AutoMigrate and the data fixes AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return err
	}
	custom := []func(*gorm.DB) error{
		backfillContentKeys,
	}
	for _, m := range custom {
		if err := m(db); err != nil {
			return err
		}
	}
	return nil
}

// backfillContentKeys fills NameKey for content rows written before the
// column existed.
func backfillContentKeys(db *gorm.DB) error {
	var rows []Content
	if err := db.Select("id", "name").Where("name_key IS NULL OR name_key = ''").Find(&rows).Error; err != nil {
		return err
	}
	for _, c := range rows {
		if err := db.Model(&Content{}).Where("id = ?", c.ID).UpdateColumn("name_key", FoldName(c.Name)).Error; err != nil {
			return fmt.Errorf("backfill content %d: %w", c.ID, err)
		}
	}
	return nil
}
