package entities

import "time"

// User holds account data plus optional reading goals. The access key is a
// fixed 32-hex credential issued at signup and accepted in the
// Authorization header; the password hash backs session login.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:150;not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	AccessKey    string    `gorm:"uniqueIndex;size:32;not null" json:"-"`
	MonthlyGoal  *int      `json:"monthly_goal,omitempty"`
	AnnualGoal   *int      `json:"annual_goal,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
