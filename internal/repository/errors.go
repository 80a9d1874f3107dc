// Package repository holds the MySQL and Redis backed stores.  The sentinel
// values below let higher layers such as handlers distinguish failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row.  Handlers should
// translate this into an HTTP 404 response, or treat it as "absent" when the
// caller only probes for existence.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert would violate a uniqueness rule,
// such as saving the same movie twice for one user.  Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
