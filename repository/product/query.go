package product

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/muhammadheryan/catalog-api/constant"
	"github.com/muhammadheryan/catalog-api/model"
)

type columnKind int

const (
	kindText columnKind = iota
	kindNumber
	kindTime
)

type column struct {
	expr string
	kind columnKind
}

// productColumns is the closed set of fields a client may filter, search or
// sort on. Anything else is ignored.
var productColumns = map[string]column{
	"id":            {expr: "p.id", kind: kindText},
	"name":          {expr: "p.name", kind: kindText},
	"category":      {expr: "p.category", kind: kindText},
	"description":   {expr: "p.description", kind: kindText},
	"status":        {expr: "p.status", kind: kindText},
	"created_by_id": {expr: "p.created_by_id", kind: kindText},
	"stock":         {expr: "p.stock", kind: kindNumber},
	"price":         {expr: "p.price", kind: kindNumber},
	"discount":      {expr: "p.discount", kind: kindNumber},
	"created_at":    {expr: "p.created_at", kind: kindTime},
	"updated_at":    {expr: "p.updated_at", kind: kindTime},
}

var defaultSearchFields = []string{"name", "description"}

const defaultOrder = "p.created_at DESC"

// Query accumulates WHERE conditions, their bind args and ORDER BY terms.
// It never fails: unusable input is dropped.
type Query struct {
	conditions []string
	args       []interface{}
	orders     []string
}

func NewQuery() *Query {
	return &Query{}
}

// ApplyFilters ANDs one condition per usable filter, in order.
func (q *Query) ApplyFilters(filters []model.FilterSpec) *Query {
	for _, f := range filters {
		col, ok := productColumns[f.Field]
		if !ok {
			continue
		}
		op := strings.ToLower(strings.TrimSpace(f.Operator))
		if op == "" {
			op = constant.OperatorEq
		}

		switch op {
		case constant.OperatorEq:
			if f.Value == nil {
				q.conditions = append(q.conditions, col.expr+" IS NULL")
				continue
			}
			if v, ok := col.coerce(f.Value); ok {
				q.add(col.expr+" = ?", v)
			}
		case constant.OperatorLike:
			if v, ok := toText(f.Value); ok {
				q.add("LOWER("+col.expr+") LIKE LOWER(?)", "%"+v+"%")
			}
		case constant.OperatorGt:
			if v, ok := col.coerce(f.Value); ok {
				q.add(col.expr+" > ?", v)
			}
		case constant.OperatorLt:
			if v, ok := col.coerce(f.Value); ok {
				q.add(col.expr+" < ?", v)
			}
		case constant.OperatorBetween:
			bounds, ok := f.Value.([]interface{})
			if !ok || len(bounds) != 2 {
				continue
			}
			low, okLow := col.coerce(bounds[0])
			high, okHigh := col.coerce(bounds[1])
			if okLow && okHigh {
				q.add(col.expr+" BETWEEN ? AND ?", low, high)
			}
		}
	}
	return q
}

// ApplySearch ORs a case-insensitive substring match across the candidate
// text fields. The group is ANDed with the filters.
func (q *Query) ApplySearch(search *model.SearchSpec) *Query {
	if search == nil || search.Value == "" {
		return q
	}
	fields := search.Fields
	if len(fields) == 0 {
		fields = defaultSearchFields
	}

	pattern := "%" + search.Value + "%"
	ors := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields))
	for _, field := range fields {
		col, ok := productColumns[field]
		if !ok || col.kind != kindText {
			continue
		}
		ors = append(ors, "LOWER("+col.expr+") LIKE LOWER(?)")
		args = append(args, pattern)
	}
	if len(ors) == 0 {
		return q
	}
	q.add("("+strings.Join(ors, " OR ")+")", args...)
	return q
}

// ApplySort adds ORDER BY terms in the given order; the first entry is the
// primary key. "asc" (or no direction) sorts ascending, anything else
// descending.
func (q *Query) ApplySort(sorts []model.SortSpec) *Query {
	for _, s := range sorts {
		col, ok := productColumns[s.Field]
		if !ok {
			continue
		}
		dir := "DESC"
		if s.Direction == "" || strings.EqualFold(s.Direction, constant.SortAsc) {
			dir = "ASC"
		}
		q.orders = append(q.orders, col.expr+" "+dir)
	}
	return q
}

// Where returns " WHERE ..." or "" when there is nothing to filter on.
func (q *Query) Where() string {
	if len(q.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conditions, " AND ")
}

// OrderBy falls back to newest first. p.id is appended as a tiebreaker so
// pages do not overlap when sort keys repeat.
func (q *Query) OrderBy() string {
	orders := q.orders
	if len(orders) == 0 {
		orders = []string{defaultOrder}
	}
	return " ORDER BY " + strings.Join(orders, ", ") + ", p.id ASC"
}

func (q *Query) Args() []interface{} {
	out := make([]interface{}, len(q.args))
	copy(out, q.args)
	return out
}

func (q *Query) add(cond string, args ...interface{}) {
	q.conditions = append(q.conditions, cond)
	q.args = append(q.args, args...)
}

func (c column) coerce(v interface{}) (interface{}, bool) {
	switch c.kind {
	case kindNumber:
		return toNumber(v)
	case kindTime:
		return toTime(v)
	default:
		return toText(v)
	}
}

func toNumber(v interface{}) (interface{}, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return nil, false
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func toTime(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
	}
	return nil, false
}

func toText(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}
