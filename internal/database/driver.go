package database

import (
	"database/sql"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DriverName is the sqlite3 driver with the librarian SQL functions attached.
const DriverName = "sqlite3_librarian"

// LowerFunc is the SQL name of the Unicode-aware lower-casing function.
// SQLite's built-in LOWER only folds ASCII letters.
const LowerFunc = "ulower"

var registerDriver sync.Once

// Dialector opens dsn through DriverName so queries can call LowerFunc.
func Dialector(dsn string) gorm.Dialector {
	registerDriver.Do(func() {
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc(LowerFunc, unicodeLower, true)
			},
		})
	})
	return sqlite.Dialector{DriverName: DriverName, DSN: dsn}
}

// unicodeLower lowers TEXT and BLOB values and passes everything else through.
// NULL arrives as a nil []byte and goes back as NULL.
func unicodeLower(v any) any {
	switch t := v.(type) {
	case string:
		return strings.ToLower(t)
	case []byte:
		if t == nil {
			return nil
		}
		return strings.ToLower(string(t))
	default:
		return v
	}
}
