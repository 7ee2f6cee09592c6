package errors

import (
	stderrors "errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers raised for integrity violations.
var constraintErrorNumbers = map[uint16]struct{}{
	1048: {}, // column cannot be null
	1062: {}, // duplicate entry
	1216: {}, // cannot add child row (fk)
	1217: {}, // cannot delete parent row (fk)
	1264: {}, // out of range value
	1406: {}, // data too long
	1451: {}, // row is referenced (fk)
	1452: {}, // referenced row missing (fk)
	3819: {}, // check constraint
}

// IsConstraintViolation reports whether err comes from a storage integrity rule.
func IsConstraintViolation(err error) bool {
	var me *mysql.MySQLError
	if !stderrors.As(err, &me) {
		return false
	}
	_, ok := constraintErrorNumbers[me.Number]
	return ok
}

// IsDuplicateEntry reports a unique key violation.
func IsDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return stderrors.As(err, &me) && me.Number == 1062
}
