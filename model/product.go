package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// StringList is a JSON array column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringList: unsupported type %T", src)
	}
	out := StringList{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*l = out
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// ProductEntity represents the products table
type ProductEntity struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Category    string     `db:"category" json:"category"`
	Description *string    `db:"description" json:"description"`
	Images      StringList `db:"images" json:"images"`
	Stock       int        `db:"stock" json:"stock"`
	Price       float64    `db:"price" json:"price"`
	Discount    float64    `db:"discount" json:"discount"`
	Status      string     `db:"status" json:"status"`
	CreatedByID string     `db:"created_by_id" json:"created_by_id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at"`
}

type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Category    string   `json:"category" validate:"required,max=100"`
	Description *string  `json:"description"`
	Images      []string `json:"images" validate:"omitempty,dive,required,max=512"`
	Stock       *int     `json:"stock" validate:"required,gte=0,max=2147483647"`
	Price       *float64 `json:"price" validate:"required,gte=0,lte=99999999.99"`
	Discount    *float64 `json:"discount" validate:"omitempty,gte=0"`
	Status      *string  `json:"status" validate:"omitempty,min=1,max=50"`
}

// UpdateProductRequest is a partial update: nil fields are left untouched.
type UpdateProductRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=255"`
	Category    *string   `json:"category" validate:"omitempty,min=1,max=100"`
	Description *string   `json:"description"`
	Images      *[]string `json:"images"`
	Stock       *int      `json:"stock" validate:"omitempty,gte=0,max=2147483647"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0,lte=99999999.99"`
	Discount    *float64  `json:"discount" validate:"omitempty,gte=0"`
	Status      *string   `json:"status" validate:"omitempty,min=1,max=50"`
}

// ApplyUpdate copies the supplied fields of req onto p.
func (p *ProductEntity) ApplyUpdate(req *UpdateProductRequest) {
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Images != nil {
		p.Images = StringList(*req.Images)
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Price != nil {
		p.Price = RoundPrice(*req.Price)
	}
	if req.Discount != nil {
		p.Discount = *req.Discount
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
}

type AttachImagesRequest struct {
	Images []string `json:"images" validate:"required,min=1,dive,required,max=512"`
}

type UploadResponse struct {
	URLs []string `json:"urls"`
}

type ProductListResponse struct {
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int64           `json:"total"`
	Pages int64           `json:"pages"`
	Items []ProductEntity `json:"items"`
}

// RoundPrice rounds to the two decimals stored by DECIMAL(10,2).
func RoundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 || total <= 0 {
		return 0
	}
	l := int64(limit)
	return (total + l - 1) / l
}
