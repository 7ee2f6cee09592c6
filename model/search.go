package model

import "github.com/muhammadheryan/catalog-api/constant"

// FilterSpec is a single (field, operator, value) predicate.
type FilterSpec struct {
	Field    string      `json:"field" validate:"required"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

type SortSpec struct {
	Field     string `json:"field" validate:"required"`
	Direction string `json:"direction"`
}

type SearchSpec struct {
	Value  string   `json:"value"`
	Fields []string `json:"fields"`
}

type ProductSearchRequest struct {
	Page    int          `json:"page" validate:"min=1,max=1000000"`
	Limit   int          `json:"limit" validate:"min=1,max=100"`
	Sort    []SortSpec   `json:"sort" validate:"omitempty,dive"`
	Search  *SearchSpec  `json:"search"`
	Filters []FilterSpec `json:"filters" validate:"omitempty,dive"`
}

// NewProductSearchRequest returns a request holding the default page and limit,
// ready to be decoded over.
func NewProductSearchRequest() ProductSearchRequest {
	return ProductSearchRequest{
		Page:  constant.DefaultPage,
		Limit: constant.DefaultLimit,
	}
}

// Offset is the number of rows skipped before the requested page.
func (r *ProductSearchRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}
