package models

import "errors"

type UserRole string

const (
	UserRoleAdmin UserRole = "Admin"
	UserRoleStaff UserRole = "Staff"
)

// CampStatus is never persisted; it is derived from the camp's date window
// and is_active flag on every read.
type CampStatus string

const (
	CampStatusInactive            CampStatus = "Inactive"
	CampStatusUpcoming            CampStatus = "Upcoming"
	CampStatusOpenForRegistration CampStatus = "OpenForRegistration"
	CampStatusRegistrationClosed  CampStatus = "RegistrationClosed"
	CampStatusInProgress          CampStatus = "InProgress"
	CampStatusCompleted           CampStatus = "Completed"
)

type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "Pending"
	RegistrationStatusConfirmed RegistrationStatus = "Confirmed"
	RegistrationStatusCancelled RegistrationStatus = "Cancelled"
)

func (s RegistrationStatus) IsValid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusConfirmed, RegistrationStatusCancelled:
		return true
	}
	return false
}

// DiscountType 'P' = percentage of the base fee, 'F' = fixed amount.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "P"
	DiscountTypeFixed      DiscountType = "F"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

type CustomFieldType string

const (
	CustomFieldTypeText     CustomFieldType = "Text"
	CustomFieldTypeNumber   CustomFieldType = "Number"
	CustomFieldTypeDropdown CustomFieldType = "Dropdown"
	CustomFieldTypeCheckbox CustomFieldType = "Checkbox"
	CustomFieldTypeDate     CustomFieldType = "Date"
)

func (t CustomFieldType) IsValid() bool {
	switch t {
	case CustomFieldTypeText, CustomFieldTypeNumber, CustomFieldTypeDropdown,
		CustomFieldTypeCheckbox, CustomFieldTypeDate:
		return true
	}
	return false
}

func ParseCustomFieldType(s string) (CustomFieldType, error) {
	switch CustomFieldType(s) {
	case CustomFieldTypeText, CustomFieldTypeNumber, CustomFieldTypeDropdown,
		CustomFieldTypeCheckbox, CustomFieldTypeDate:
		return CustomFieldType(s), nil
	}
	return "", errors.New("invalid custom field type")
}

type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "Cash"
	PaymentModeBankTransfer PaymentMode = "BankTransfer"
	PaymentModeMobileMoney  PaymentMode = "MobileMoney"
	PaymentModeCard         PaymentMode = "Card"
)

func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeBankTransfer, PaymentModeMobileMoney, PaymentModeCard:
		return true
	}
	return false
}

// PledgeStatus is derived from fulfilled_amount vs amount. The stored
// column is recomputed on every fulfillment write so list filters can use
// it without re-summing.
type PledgeStatus string

const (
	PledgeStatusOpen               PledgeStatus = "Open"
	PledgeStatusPartiallyFulfilled PledgeStatus = "PartiallyFulfilled"
	PledgeStatusFulfilled          PledgeStatus = "Fulfilled"
)

func (s PledgeStatus) IsValid() bool {
	switch s {
	case PledgeStatusOpen, PledgeStatusPartiallyFulfilled, PledgeStatusFulfilled:
		return true
	}
	return false
}

type PurchaseCategory string

const (
	PurchaseCategoryFood      PurchaseCategory = "Food"
	PurchaseCategoryEquipment PurchaseCategory = "Equipment"
	PurchaseCategoryTransport PurchaseCategory = "Transport"
	PurchaseCategoryOther     PurchaseCategory = "Other"
)

func (c PurchaseCategory) IsValid() bool {
	switch c {
	case PurchaseCategoryFood, PurchaseCategoryEquipment, PurchaseCategoryTransport, PurchaseCategoryOther:
		return true
	}
	return false
}

type RoomType string

const (
	RoomTypeMale   RoomType = "Male"
	RoomTypeFemale RoomType = "Female"
	RoomTypeFamily RoomType = "Family"
	RoomTypeStaff  RoomType = "Staff"
)

func (t RoomType) IsValid() bool {
	switch t {
	case RoomTypeMale, RoomTypeFemale, RoomTypeFamily, RoomTypeStaff:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// NotificationChannel selects how an outbox row is delivered.
type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "Email"
	NotificationChannelEvent NotificationChannel = "Event"
)

// NotificationAction mirrors the domain write that produced the outbox row.
type NotificationAction string

const (
	NotificationActionCreate NotificationAction = "C"
	NotificationActionUpdate NotificationAction = "U"
	NotificationActionDelete NotificationAction = "D"
)

// NotificationReferenceType identifies the domain record an outbox row points at.
type NotificationReferenceType string

const (
	NotificationReferenceTypeRegistration      NotificationReferenceType = "RG"
	NotificationReferenceTypePayment           NotificationReferenceType = "PM"
	NotificationReferenceTypePledge            NotificationReferenceType = "PL"
	NotificationReferenceTypePledgeFulfillment NotificationReferenceType = "PF"
	NotificationReferenceTypeIdCard            NotificationReferenceType = "IDC"
)
