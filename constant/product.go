package constant

const (
	ProductStatusActive = "active"

	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// keeps (page-1)*limit well inside int range
	MaxPage = 1000000
)

const (
	OperatorEq      = "eq"
	OperatorLike    = "like"
	OperatorGt      = "gt"
	OperatorLt      = "lt"
	OperatorBetween = "between"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Catalog event routing keys.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)
