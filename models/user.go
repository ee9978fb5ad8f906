package models

// User is a board member. Users are never updated after creation.
type User struct {
	UserID    string `gorm:"primaryKey;size:255" json:"userId"`
	Username  string `gorm:"type:text" json:"username"`
	Email     string `gorm:"type:text" json:"email"`
	CreatedAt string `gorm:"size:32" json:"createdAt"`
}

// RecordKey returns the primary key.
func (u *User) RecordKey() string { return u.UserID }
