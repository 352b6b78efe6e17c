package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers we map onto domain sentinels.
const (
	errDuplicateEntry  = 1062
	errForeignKeyChild = 1452
)

func isUniqueConstraintError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == errDuplicateEntry
	}
	return false
}

func isForeignKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == errForeignKeyChild
	}
	return false
}
