package models

import (
	"time"

	"gorm.io/datatypes"
)

type ProductCategory string

const (
	CategoryDripIrrigation ProductCategory = "drip_irrigation"
	CategorySprinklers     ProductCategory = "sprinklers"
	CategoryPumps          ProductCategory = "pumps"
	CategoryPipesFittings  ProductCategory = "pipes_fittings"
	CategoryFiltration     ProductCategory = "filtration"
	CategoryControllers    ProductCategory = "controllers"
	CategoryWaterStorage   ProductCategory = "water_storage"
	CategoryAccessories    ProductCategory = "accessories"
)

// ProductCategories is the closed category list, in catalog display order.
var ProductCategories = []ProductCategory{
	CategoryDripIrrigation,
	CategorySprinklers,
	CategoryPumps,
	CategoryPipesFittings,
	CategoryFiltration,
	CategoryControllers,
	CategoryWaterStorage,
	CategoryAccessories,
}

type Product struct {
	ID             uint                         `gorm:"primaryKey" json:"id"`
	Name           string                       `gorm:"size:150;not null" json:"name"`
	Slug           string                       `gorm:"size:180;uniqueIndex;not null" json:"slug"`
	Category       ProductCategory              `gorm:"size:40;index;not null" json:"category"`
	Description    string                       `gorm:"type:text" json:"description"`
	Price          *float64                     `json:"price"` // nil = price on request
	Currency       string                       `gorm:"size:3;not null;default:KES" json:"currency"`
	Specifications datatypes.JSONType[Specs]    `json:"specifications"`
	Features       datatypes.JSONType[[]string] `json:"features"`
	Applications   datatypes.JSONType[[]string] `json:"applications"`
	ImageURL       string                       `gorm:"size:500" json:"image_url"`
	InStock        bool                         `gorm:"not null;index" json:"in_stock"`
	StockQuantity  int                          `gorm:"not null;default:0" json:"stock_quantity"`
	Featured       bool                         `gorm:"not null;default:false" json:"featured"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}
