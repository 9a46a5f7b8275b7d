package models

import "time"

type ContactStatus string

const (
	ContactStatusNew      ContactStatus = "new"
	ContactStatusRead     ContactStatus = "read"
	ContactStatusReplied  ContactStatus = "replied"
	ContactStatusArchived ContactStatus = "archived"
)

func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusRead, ContactStatusReplied, ContactStatusArchived:
		return true
	}
	return false
}

type Contact struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	FirstName string        `gorm:"size:80;not null" json:"first_name"`
	LastName  string        `gorm:"size:80;not null" json:"last_name"`
	Email     string        `gorm:"size:150;not null" json:"email"`
	Phone     string        `gorm:"size:30" json:"phone"`
	Subject   string        `gorm:"size:200;not null" json:"subject"`
	Message   string        `gorm:"type:text;not null" json:"message"`
	Status    ContactStatus `gorm:"size:20;not null;default:new;index" json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
