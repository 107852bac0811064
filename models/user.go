package models

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/config"
	"bitbucket.org/mmdatafocus/camps_backend/utils"
	"github.com/google/uuid"
)

type User struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index" json:"organization_id"`
	Username       string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name           string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email          *string   `gorm:"size:100;unique" json:"email"`
	Phone          string    `gorm:"size:20" json:"phone"`
	Password       string    `gorm:"size:255;not null" json:"password"`
	IsActive       *bool     `gorm:"not null" json:"is_active"`
	Role           UserRole  `gorm:"type:enum('Admin','Staff');default:'Staff'" json:"role"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Password string   `json:"password" binding:"required"`
	IsActive *bool    `json:"is_active" binding:"required"`
	Role     UserRole `json:"role" binding:"required"`
}

/*
caches:
	User:$username
	Token:$token
	Tokens:$username
*/

func (user User) RemoveInstanceRedis() error {
	if err := config.RemoveRedisKey("User:" + user.Username); err != nil {
		return err
	}
	return nil
}

type LoginInfo struct {
	Token            string `json:"token"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	OrganizationName string `json:"organization_name"`
	CurrencyCode     string `json:"currency_code"`
	Timezone         string `json:"timezone"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	err := config.RemoveRedisKey("Token:" + fmt.Sprint(token))
	if err != nil {
		return false, nil
	}
	// remove current token from tokens list
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return false, errors.New("user not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
		return false, err
	}
	return true, nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var err error
	var result LoginInfo

	user := User{}

	// get User info
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return &result, err
	}
	if !exists {
		scopeless := utils.SetSkipTenantScopeInContext(ctx, true)
		err = db.WithContext(scopeless).Model(&User{}).Where("username = ?", username).Take(&user).Error
		if err != nil {
			return &result, errors.New("invalid username or password")
		}
	}

	// check login credentials; a malformed stored hash must fail closed too
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return &result, errors.New("invalid username or password")
	}

	isActive := *user.IsActive
	if !isActive {
		return &result, errors.New("user is disabled")
	}

	// generate token & response
	token := uuid.New()
	result.Token = token.String()
	result.Name = user.Username
	result.Role = string(user.Role)

	if user.OrganizationId != "" {
		org, err := GetOrganizationById(ctx, user.OrganizationId)
		if err != nil {
			return nil, err
		}
		result.OrganizationName = org.Name
		result.CurrencyCode = org.CurrencyCode
		result.Timezone = org.Timezone
	}

	// store token in redis
	token_lifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		return &result, err
	}

	// add new token to the user's tokens set
	if err := config.AddRedisSet("Tokens:"+user.Username, token.String()); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token.String(), user.Username, time.Duration(token_lifespan)*time.Hour); err != nil {
		return &result, err
	}

	return &result, nil
}

// GetAllUsers lists the session organization's users only.
func GetAllUsers(ctx context.Context) ([]*User, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return nil, errors.New("organization id is required")
	}

	db := config.GetDB()
	var results []*User

	if err := db.WithContext(ctx).Where("organization_id = ?", organizationId).Find(&results).Error; err != nil {
		return results, errors.New("no user")
	}
	for _, u := range results {
		u.PrepareGive()
	}
	return results, nil
}

// CreateUser always lands the user in the session's organization; the
// request body has no say in the tenant.
func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	db := config.GetDB()
	var count int64

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == "" {
		return &User{}, errors.New("organization id is required")
	}

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return &User{}, errors.New("invalid email address")
	}

	scopeless := utils.SetSkipTenantScopeInContext(ctx, true)
	err := db.WithContext(scopeless).Model(&User{}).Where("username = ?", input.Username).Or("email = ?", input.Email).Count(&count).Error
	if err != nil {
		return &User{}, err
	}
	if count > 0 {
		return &User{}, errors.New("duplicate username or email")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return &User{}, err
	}
	input.Email = strings.ToLower(input.Email)

	user := User{
		Username:       html.EscapeString(strings.TrimSpace(input.Username)),
		OrganizationId: organizationId,
		Name:           input.Name,
		Email:          utils.NilIfEmpty(input.Email),
		Phone:          input.Phone,
		Password:       string(hashedPassword),
		IsActive:       input.IsActive,
		Role:           input.Role,
	}

	err = db.WithContext(ctx).Create(&user).Error
	if err != nil {
		return &User{}, err
	}
	user.Password = ""
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {

	db := config.GetDB()
	var result User

	err := db.WithContext(ctx).First(&result, id).Error

	if err != nil {
		return &result, utils.ErrorRecordNotFound
	}

	result.PrepareGive()

	return &result, nil
}

func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User

	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		if db == nil {
			return nil, errors.New("db is nil")
		}
		scopeless := utils.SetSkipTenantScopeInContext(ctx, true)
		if err := db.WithContext(scopeless).Model(&User{}).Where("username = ?", username).Take(&user).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
	}
	return &user, nil
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*User, error) {
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return nil, errors.New("unauthorized")
	}

	db := config.GetDB()
	var user User
	scopeless := utils.SetSkipTenantScopeInContext(ctx, true)
	if err := db.WithContext(scopeless).Model(&User{}).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if err := utils.ComparePassword(user.Password, oldPassword); err != nil {
		return nil, errors.New("incorrect current password")
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(scopeless).Model(&user).Update("password", string(hashed)).Error; err != nil {
		return nil, err
	}

	// drop cached copy; sessions stay valid
	if err := user.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}
