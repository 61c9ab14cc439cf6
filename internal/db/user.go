package db

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UsersCollection 是认证集合的名称
const UsersCollection = "users"

// Credential 保存认证集合中记录的登录凭据
type Credential struct {
	RecordID     string `gorm:"primaryKey;size:32"`
	Collection   string `gorm:"size:64;not null;uniqueIndex:idx_credentials_identity,priority:1"`
	Email        string `gorm:"size:255;not null;uniqueIndex:idx_credentials_identity,priority:2"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 指定自定义表名。
func (Credential) TableName() string {
	return "credentials"
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureUser 存在性检查：若邮箱与密码均非空且不存在对应账号，则创建用户记录与 bcrypt 凭据。
// 返回已存在或新建用户的记录 ID。
func EnsureUser(gdb *gorm.DB, email, password, name string) (string, error) {
	trimmedEmail := NormalizeEmail(email)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedEmail == "" || trimmedPassword == "" {
		return "", nil
	}

	if gdb == nil {
		return "", errors.New("database not initialized")
	}

	var existing Credential
	err := gdb.Where("collection = ? AND email = ?", UsersCollection, trimmedEmail).First(&existing).Error
	if err == nil {
		return existing.RecordID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	hashed, err := HashPassword(trimmedPassword)
	if err != nil {
		return "", err
	}

	displayName := strings.TrimSpace(name)
	if displayName == "" {
		displayName = strings.SplitN(trimmedEmail, "@", 2)[0]
	}

	record := Record{ID: NewRecordID(), Collection: UsersCollection}
	if err := record.SetFields(map[string]any{
		"email":         trimmedEmail,
		"name":          displayName,
		"is_scientific": false,
	}); err != nil {
		return "", err
	}

	err = gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Create(&Credential{
			RecordID:     record.ID,
			Collection:   UsersCollection,
			Email:        trimmedEmail,
			PasswordHash: hashed,
		}).Error
	})
	if err != nil {
		return "", err
	}
	return record.ID, nil
}
