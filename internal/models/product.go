package models

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a product in the catalog.
// Active=false marks a soft-deleted row; such rows are never purged.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string          `json:"name" gorm:"type:varchar(100);not null"`
	Description *string         `json:"description" gorm:"type:varchar(500)"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(18,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null"`
	Active      bool            `json:"active" gorm:"not null;default:true;index"`
	Version     int64           `json:"-" gorm:"not null;default:1"`

	// Case-folded copies of name and description used by search.
	SearchName        string `json:"-" gorm:"type:text;not null;default:''"`
	SearchDescription string `json:"-" gorm:"type:text;not null;default:''"`
}

// ProductInput is the request body accepted by create and update.
// ID is only meaningful on update, where it must match the path id.
type ProductInput struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name" validate:"required,notblank,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=500"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0"`
	Stock       int              `json:"stock" validate:"gte=0"`
}

// ProductFilter narrows a search. Nil fields are not applied.
type ProductFilter struct {
	Name            *string
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	IncludeInactive bool
}

// ProductStats aggregates over active products.
// Price aggregates are null when there are no active products.
type ProductStats struct {
	Count      int64               `json:"count"`
	TotalStock int64               `json:"totalStock"`
	AvgPrice   decimal.NullDecimal `json:"avgPrice"`
	MaxPrice   decimal.NullDecimal `json:"maxPrice"`
	MinPrice   decimal.NullDecimal `json:"minPrice"`
}

// Apply copies the updatable fields of in onto p.
func (p *Product) Apply(in ProductInput) {
	p.Name = in.Name
	p.Description = in.Description
	if in.Price != nil {
		p.Price = in.Price.Round(2)
	}
	p.Stock = in.Stock
	p.SetSearchKeys()
}

// SetSearchKeys refreshes the folded search columns from name and description.
func (p *Product) SetSearchKeys() {
	p.SearchName = FoldCase(p.Name)
	p.SearchDescription = ""
	if p.Description != nil {
		p.SearchDescription = FoldCase(*p.Description)
	}
}

// BeforeSave keeps the search columns in step with rows written through
// Create or Save.
func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.SetSearchKeys()
	return nil
}

// FoldCase applies full Unicode case folding, so "ÁGUILA" and "águila" fold
// to the same string.
func FoldCase(s string) string {
	return cases.Fold().String(s)
}

// SeedProducts returns the rows inserted into an empty catalog.
func SeedProducts() []Product {
	return []Product{
		{Name: "Laptop Gaming", Description: strPtr("Laptop para gaming"), Price: decimal.NewFromInt(1500), Stock: 10},
		{Name: "Mouse Inalámbrico", Description: strPtr("Mouse ergonómico"), Price: decimal.NewFromInt(25), Stock: 50},
		{Name: "Teclado Mecánico", Description: strPtr("Teclado RGB"), Price: decimal.NewFromInt(75), Stock: 30},
	}
}

func strPtr(s string) *string { return &s }
