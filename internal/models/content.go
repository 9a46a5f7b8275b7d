package models

import (
	"time"

	"gorm.io/datatypes"
)

type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:150;not null" json:"title"`
	ClientName  string     `gorm:"size:120" json:"client_name"`
	Location    string     `gorm:"size:150;not null" json:"location"`
	ProjectType string     `gorm:"size:80;not null" json:"project_type"`
	AreaSize    float64    `json:"area_size"`
	CropType    string     `gorm:"size:80" json:"crop_type"`
	Description string     `gorm:"type:text" json:"description"`
	ImageURL    string     `gorm:"size:500" json:"image_url"`
	CompletedOn *time.Time `json:"completed_on"`
	Featured    bool       `gorm:"not null;index" json:"featured"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type SuccessStory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:150;not null" json:"title"`
	CustomerName  string    `gorm:"size:120;not null" json:"customer_name"`
	Location      string    `gorm:"size:150" json:"location"`
	CropType      string    `gorm:"size:80" json:"crop_type"`
	Summary       string    `gorm:"size:500;not null" json:"summary"`
	Story         string    `gorm:"type:text" json:"story"`
	YieldIncrease *float64  `json:"yield_increase"` // percent
	WaterSavings  *float64  `json:"water_savings"`  // percent
	ImageURL      string    `gorm:"size:500" json:"image_url"`
	Active        bool      `gorm:"not null;index" json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type BlogPost struct {
	ID          uint                         `gorm:"primaryKey" json:"id"`
	Title       string                       `gorm:"size:200;not null" json:"title"`
	Slug        string                       `gorm:"size:220;uniqueIndex;not null" json:"slug"`
	Excerpt     string                       `gorm:"size:500" json:"excerpt"`
	Content     string                       `gorm:"type:text;not null" json:"content"`
	Author      string                       `gorm:"size:120" json:"author"`
	Category    string                       `gorm:"size:80;index" json:"category"`
	Tags        datatypes.JSONType[[]string] `json:"tags"`
	ImageURL    string                       `gorm:"size:500" json:"image_url"`
	Published   bool                         `gorm:"not null;index" json:"published"`
	PublishedAt *time.Time                   `json:"published_at"`
	CreatedAt   time.Time                    `json:"created_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Position  string    `gorm:"size:120;not null" json:"position"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Email     string    `gorm:"size:150" json:"email"`
	Phone     string    `gorm:"size:30" json:"phone"`
	ImageURL  string    `gorm:"size:500" json:"image_url"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	Active    bool      `gorm:"not null;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
