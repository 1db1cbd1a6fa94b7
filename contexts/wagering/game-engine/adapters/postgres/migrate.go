package postgresadapter

import "gorm.io/gorm"

// Migrate creates the wagering-side tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&gameModel{}, &optionModel{}, &voteModel{}, &outboxModel{})
}
