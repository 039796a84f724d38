package database

import "creaza/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Pin{},
		&models.Comment{},
		&models.NotificationRecord{},
		&models.Collection{},
		&models.Follow{},
		&models.PinLike{},
		&models.Account{},
	}
}
