package models

import "time"

// WaitlistSignup is a single waitlist registration. Rows are created once per
// unique email and never updated.
type WaitlistSignup struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	CreatorType string    `gorm:"column:creator_type;type:text;not null" json:"creatorType"`
	CreatedAt   time.Time `gorm:"not null;index" json:"createdAt"`
}

func (WaitlistSignup) TableName() string { return "waitlist_signups" }
