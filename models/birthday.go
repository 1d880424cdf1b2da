package models

import (
	"niverbot/dates"

	"gorm.io/gorm"
)

// Birthday represents a user's registered birth day and month.
type Birthday struct {
	gorm.Model `json:"-"`
	UserID     string `gorm:"uniqueIndex" json:"-"`
	Name       string `gorm:"column:nome" json:"nome"`
	Date       string `gorm:"column:data" json:"data"`
}

// DayMonth parses the stored DD/MM date.
func (b Birthday) DayMonth() (dates.DayMonth, error) {
	return dates.Parse(b.Date)
}
