package product

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/muhammadheryan/catalog-api/model"
	"github.com/stretchr/testify/assert"
)

func TestQuery_ApplyFilters(t *testing.T) {
	tests := []struct {
		name      string
		filters   []model.FilterSpec
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:      "no filters",
			filters:   nil,
			wantWhere: "",
			wantArgs:  []interface{}{},
		},
		{
			name:      "gt on price",
			filters:   []model.FilterSpec{{Field: "price", Operator: "gt", Value: float64(10)}},
			wantWhere: " WHERE p.price > ?",
			wantArgs:  []interface{}{float64(10)},
		},
		{
			name:      "operator defaults to eq and is case-insensitive",
			filters:   []model.FilterSpec{{Field: "category", Value: "books"}, {Field: "stock", Operator: "LT", Value: json.Number("3")}},
			wantWhere: " WHERE p.category = ? AND p.stock < ?",
			wantArgs:  []interface{}{"books", int64(3)},
		},
		{
			name:      "like wraps value",
			filters:   []model.FilterSpec{{Field: "name", Operator: "like", Value: "Mug"}},
			wantWhere: " WHERE LOWER(p.name) LIKE LOWER(?)",
			wantArgs:  []interface{}{"%Mug%"},
		},
		{
			name:      "between is inclusive",
			filters:   []model.FilterSpec{{Field: "price", Operator: "between", Value: []interface{}{float64(5), float64(20)}}},
			wantWhere: " WHERE p.price BETWEEN ? AND ?",
			wantArgs:  []interface{}{float64(5), float64(20)},
		},
		{
			name: "malformed between is skipped",
			filters: []model.FilterSpec{
				{Field: "price", Operator: "between", Value: []interface{}{float64(5)}},
				{Field: "price", Operator: "between", Value: float64(5)},
				{Field: "price", Operator: "between", Value: []interface{}{float64(1), float64(2), float64(3)}},
				{Field: "price", Operator: "between", Value: []interface{}{"cheap", float64(3)}},
			},
			wantWhere: "",
			wantArgs:  []interface{}{},
		},
		{
			name: "unknown field and operator are skipped",
			filters: []model.FilterSpec{
				{Field: "pricee", Operator: "gt", Value: float64(1)},
				{Field: "images", Operator: "eq", Value: "x"},
				{Field: "stock", Operator: "gte", Value: float64(1)},
				{Field: "status", Operator: "eq", Value: "active"},
			},
			wantWhere: " WHERE p.status = ?",
			wantArgs:  []interface{}{"active"},
		},
		{
			name:      "null eq becomes IS NULL",
			filters:   []model.FilterSpec{{Field: "description", Operator: "eq", Value: nil}},
			wantWhere: " WHERE p.description IS NULL",
			wantArgs:  []interface{}{},
		},
		{
			name:      "uncoercible value is skipped",
			filters:   []model.FilterSpec{{Field: "stock", Operator: "gt", Value: map[string]interface{}{"a": 1}}},
			wantWhere: "",
			wantArgs:  []interface{}{},
		},
		{
			name:      "time column parses dates",
			filters:   []model.FilterSpec{{Field: "created_at", Operator: "gt", Value: "2024-01-02"}},
			wantWhere: " WHERE p.created_at > ?",
			wantArgs:  []interface{}{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery().ApplyFilters(tt.filters)
			assert.Equal(t, tt.wantWhere, q.Where())
			assert.Equal(t, tt.wantArgs, q.Args())
		})
	}
}

func TestQuery_ApplySearch(t *testing.T) {
	tests := []struct {
		name      string
		search    *model.SearchSpec
		filters   []model.FilterSpec
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:      "nil search",
			wantWhere: "",
			wantArgs:  []interface{}{},
		},
		{
			name:      "empty value",
			search:    &model.SearchSpec{Value: ""},
			wantWhere: "",
			wantArgs:  []interface{}{},
		},
		{
			name:      "default fields",
			search:    &model.SearchSpec{Value: "tea"},
			wantWhere: " WHERE (LOWER(p.name) LIKE LOWER(?) OR LOWER(p.description) LIKE LOWER(?))",
			wantArgs:  []interface{}{"%tea%", "%tea%"},
		},
		{
			name:      "unknown and non-text fields dropped",
			search:    &model.SearchSpec{Value: "tea", Fields: []string{"category", "nope", "price"}},
			wantWhere: " WHERE (LOWER(p.category) LIKE LOWER(?))",
			wantArgs:  []interface{}{"%tea%"},
		},
		{
			name:      "no usable fields",
			search:    &model.SearchSpec{Value: "tea", Fields: []string{"nope"}},
			wantWhere: "",
			wantArgs:  []interface{}{},
		},
		{
			name:      "search ANDed with filters",
			search:    &model.SearchSpec{Value: "tea", Fields: []string{"name"}},
			filters:   []model.FilterSpec{{Field: "price", Operator: "lt", Value: float64(5)}},
			wantWhere: " WHERE p.price < ? AND (LOWER(p.name) LIKE LOWER(?))",
			wantArgs:  []interface{}{float64(5), "%tea%"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery().ApplyFilters(tt.filters).ApplySearch(tt.search)
			assert.Equal(t, tt.wantWhere, q.Where())
			assert.Equal(t, tt.wantArgs, q.Args())
		})
	}
}

func TestQuery_ApplySort(t *testing.T) {
	tests := []struct {
		name  string
		sorts []model.SortSpec
		want  string
	}{
		{
			name: "default newest first",
			want: " ORDER BY p.created_at DESC, p.id ASC",
		},
		{
			name:  "multi key in order",
			sorts: []model.SortSpec{{Field: "price", Direction: "desc"}, {Field: "name", Direction: "asc"}},
			want:  " ORDER BY p.price DESC, p.name ASC, p.id ASC",
		},
		{
			name:  "missing direction is ascending",
			sorts: []model.SortSpec{{Field: "stock"}},
			want:  " ORDER BY p.stock ASC, p.id ASC",
		},
		{
			name:  "unknown fields skipped",
			sorts: []model.SortSpec{{Field: "drop table", Direction: "asc"}, {Field: "category", Direction: "DESC"}},
			want:  " ORDER BY p.category DESC, p.id ASC",
		},
		{
			name:  "nothing usable falls back",
			sorts: []model.SortSpec{{Field: "nope"}},
			want:  " ORDER BY p.created_at DESC, p.id ASC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewQuery().ApplySort(tt.sorts).OrderBy())
		})
	}
}

func TestQuery_UnknownFilterDoesNotChangeQuery(t *testing.T) {
	known := []model.FilterSpec{{Field: "price", Operator: "gt", Value: float64(10)}}
	withUnknown := append([]model.FilterSpec{{Field: "colour", Operator: "eq", Value: "red"}}, known...)

	a := NewQuery().ApplyFilters(known)
	b := NewQuery().ApplyFilters(withUnknown)

	assert.Equal(t, a.Where(), b.Where())
	assert.Equal(t, a.Args(), b.Args())
}

func TestProductSearchRequest_Offset(t *testing.T) {
	req := model.ProductSearchRequest{Page: 2, Limit: 10}
	assert.Equal(t, 10, req.Offset())
	assert.Equal(t, int64(3), model.TotalPages(25, req.Limit))
}
