// Package repository defines error types that are reused across the
// reservation and table stores. These sentinel values let the service layer
// tell a missing row from an occupied table or a storage failure without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested reservation or table does not
// exist. Services translate this into a not-found error.
var ErrNotFound = errors.New("not found")

// ErrTableOccupied is returned by Assign when the table already references a
// reservation. The compare-and-swap found no free row to update.
var ErrTableOccupied = errors.New("table occupied")

// ErrAlreadyLinked is returned when a reservation is already referenced by
// another table. In MySQL this surfaces as a UNIQUE(reservation_id) violation.
var ErrAlreadyLinked = errors.New("reservation already linked to a table")

// Server error numbers the stores react to.
const (
	mysqlDuplicateEntry = 1062 // unique key violation
	mysqlDeadlock       = 1213 // ER_LOCK_DEADLOCK, the victim is rolled back
)

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

func isDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDeadlock
}
