package models

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Password string `gorm:"type:text;not null" json:"-"`
}

func (User) TableName() string { return "users" }
