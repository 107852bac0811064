package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"gorm.io/gorm"
)

type Room struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	CampId         int       `gorm:"index;not null" json:"camp_id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	RoomType       RoomType  `gorm:"size:20;not null" json:"room_type"`
	Capacity       int       `gorm:"not null" json:"capacity"`
	Notes          string    `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Allocations []RoomAllocation `gorm:"foreignKey:RoomId" json:"allocations"`
}

// RoomAllocation assigns one camper to one room. A camper holds at most
// one bed per camp.
type RoomAllocation struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	RoomId         int       `gorm:"index;not null" json:"room_id"`
	RegistrationId int       `gorm:"index;not null" json:"registration_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`

	Registration Registration `json:"registration"`
}

type NewRoom struct {
	CampId   int      `json:"camp_id" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	RoomType RoomType `json:"room_type" binding:"required"`
	Capacity int      `json:"capacity" binding:"required"`
	Notes    string   `json:"notes"`
}

// RoomResponse includes the occupancy the assignment screen renders.
type RoomResponse struct {
	Room
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

func (r Room) GetCursor() string {
	return r.CreatedAt.String()
}

func (r Room) ToResponse() *RoomResponse {
	occupied := len(r.Allocations)
	available := r.Capacity - occupied
	if available < 0 {
		available = 0
	}
	return &RoomResponse{Room: r, Occupied: occupied, Available: available}
}

func (input *NewRoom) validate(ctx context.Context, organizationId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Room](ctx, organizationId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Camp](ctx, organizationId, input.CampId); err != nil {
		return errors.New("camp not found")
	}
	if !input.RoomType.IsValid() {
		return errors.New("invalid room type")
	}
	if input.Capacity <= 0 {
		return errors.New("capacity must be positive")
	}
	return nil
}

func CreateRoom(ctx context.Context, input *NewRoom) (*Room, error) {
	db := config.GetDB()

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	room := Room{
		OrganizationId: organizationId,
		CampId:         input.CampId,
		Name:           input.Name,
		RoomType:       input.RoomType,
		Capacity:       input.Capacity,
		Notes:          input.Notes,
	}

	if err := db.WithContext(ctx).Create(&room).Error; err != nil {
		return nil, err
	}

	return &room, nil
}

func UpdateRoom(ctx context.Context, id int, input *NewRoom) (*Room, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	room, err := utils.FetchModel[Room](ctx, organizationId, id, "Allocations")
	if err != nil {
		return nil, err
	}

	if input.Capacity < len(room.Allocations) {
		return nil, fmt.Errorf("capacity cannot drop below the %d current occupants", len(room.Allocations))
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(room).Updates(map[string]interface{}{
		"CampId":   input.CampId,
		"Name":     input.Name,
		"RoomType": input.RoomType,
		"Capacity": input.Capacity,
		"Notes":    input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}

	return room, nil
}

func DeleteRoom(ctx context.Context, id int) (*Room, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	room, err := utils.FetchModel[Room](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	allocationCount, err := utils.ResourceCountWhere[RoomAllocation](ctx, organizationId, "room_id = ?", id)
	if err != nil {
		return nil, err
	}
	if allocationCount > 0 {
		return nil, errors.New("room has occupants and cannot be deleted")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(room).Error; err != nil {
		return nil, err
	}

	return room, nil
}

func GetRoom(ctx context.Context, id int) (*RoomResponse, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}
	room, err := utils.FetchModel[Room](ctx, organizationId, id, "Allocations", "Allocations.Registration")
	if err != nil {
		return nil, err
	}
	return room.ToResponse(), nil
}

func ListRooms(ctx context.Context, campId *int) ([]*RoomResponse, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId).
		Preload("Allocations").Preload("Allocations.Registration")
	if campId != nil && *campId > 0 {
		dbCtx.Where("camp_id = ?", *campId)
	}
	var rooms []*Room
	if err := dbCtx.Order("name").Find(&rooms).Error; err != nil {
		return nil, err
	}

	responses := make([]*RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		responses = append(responses, room.ToResponse())
	}
	return responses, nil
}

// AllocateRoom puts a camper in a room. Capacity and the one-room-per-camp
// rule are both checked inside the transaction.
func AllocateRoom(ctx context.Context, roomId int, registrationId int) (*RoomAllocation, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	room, err := utils.FetchModel[Room](ctx, organizationId, roomId)
	if err != nil {
		return nil, errors.New("room not found")
	}

	registration, err := utils.FetchModel[Registration](ctx, organizationId, registrationId)
	if err != nil {
		return nil, errors.New("registration not found")
	}
	if registration.Status == RegistrationStatusCancelled {
		return nil, errors.New("cannot allocate a cancelled registration")
	}
	if registration.CampId != room.CampId {
		return nil, errors.New("registration belongs to a different camp")
	}

	allocation := RoomAllocation{
		OrganizationId: organizationId,
		RoomId:         roomId,
		RegistrationId: registrationId,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var occupied int64
		err := tx.Model(&RoomAllocation{}).
			Where("organization_id = ? AND room_id = ?", organizationId, roomId).
			Count(&occupied).Error
		if err != nil {
			return err
		}
		if occupied >= int64(room.Capacity) {
			return errors.New("room is full")
		}

		// one bed per camper per camp
		var existing int64
		err = tx.Model(&RoomAllocation{}).
			Joins("JOIN rooms ON rooms.id = room_allocations.room_id").
			Where("room_allocations.organization_id = ? AND room_allocations.registration_id = ? AND rooms.camp_id = ?",
				organizationId, registrationId, room.CampId).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return errors.New("camper is already allocated a room for this camp")
		}

		return tx.Create(&allocation).Error
	})
	if err != nil {
		return nil, err
	}

	return &allocation, nil
}

func DeallocateRoom(ctx context.Context, roomId int, allocationId int) (*RoomAllocation, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var allocation RoomAllocation
	err := db.WithContext(ctx).
		Where("organization_id = ? AND room_id = ? AND id = ?", organizationId, roomId, allocationId).
		First(&allocation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	if err := db.WithContext(ctx).Delete(&allocation).Error; err != nil {
		return nil, err
	}
	return &allocation, nil
}
