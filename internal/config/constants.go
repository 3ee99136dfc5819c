package config

const (
	// DefaultDatabasePath is the default path for the library database.
	// The task queue database is created next to it.
	DefaultDatabasePath = "./librarian.db"

	DefaultStorageDir = "./storage"

	DefaultReportDir = "./reports"
)
