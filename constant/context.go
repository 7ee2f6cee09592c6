package constant

type ContextKey string

const (
	UserKey ContextKey = "user"
)
