package models

import (
	"log"

	"bitbucket.org/mmdatafocus/camps_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Organization{}, &User{},
		&Camp{}, &Church{}, &Category{},
		&CustomField{}, &CustomFieldValue{},
		&Registration{}, &RegistrationLink{},
		&Payment{}, &Pledge{}, &PledgeFulfillment{}, &Purchase{},
		&InventoryItem{}, &Room{}, &RoomAllocation{},
		&Attachment{},
		&NotificationRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
