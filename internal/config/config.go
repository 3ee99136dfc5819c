package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Storage
		Listing
		Tasks
		Sweep
		Audit
		Session
		CORS
		Metrics
	}

	HTTP struct {
		Port         int32
		Host         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path     string
		LogLevel string // silent, error, warn or info
	}
	Storage struct {
		Dir            string
		PublicPath     string // URL prefix images are served under
		MaxUploadBytes int64
		MaxImagePixels int64 // width*height cap checked before decoding
	}
	Listing struct {
		PageSize int
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Sweep struct {
		Schedule    string        // Cron format; empty disables the scheduled sweep
		GracePeriod time.Duration // Blobs younger than this are never swept
	}
	Audit struct {
		ReportDir       string // Import reports with skipped rows
		RetentionDays   int
		CleanupSchedule string
	}
	Session struct {
		Lifetime      time.Duration
		SecureCookies bool // Set to false for local dev without HTTPS
		CSRFSecret    string
		BcryptCost    int
	}
	CORS struct {
		AllowedOrigins []string
	}
	Metrics struct {
		Enabled bool
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("read_timeout", "30s")
	v.SetDefault("write_timeout", "60s")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("db_log_level", "warn")

	v.SetDefault("storage_dir", DefaultStorageDir)
	v.SetDefault("storage_public_path", "/storage")
	v.SetDefault("max_upload_bytes", 10<<20)
	v.SetDefault("max_image_pixels", 50_000_000)

	v.SetDefault("page_size", 5)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("sweep_schedule", "30 3 * * *") // Daily at 03:30
	v.SetDefault("sweep_grace_period", "1h")

	v.SetDefault("import_report_dir", DefaultReportDir)
	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("audit_cleanup_schedule", "0 4 * * 0") // Sundays at 04:00

	v.SetDefault("session_lifetime", "24h")
	v.SetDefault("session_secure_cookies", true)
	v.SetDefault("csrf_secret", "")
	v.SetDefault("bcrypt_cost", 12)

	v.SetDefault("cors_allowed_origins", "")
	v.SetDefault("metrics_enabled", true)

	return &Config{
		HTTP: HTTP{
			Port:         v.GetInt32("PORT"),
			Host:         v.GetString("HOST"),
			ReadTimeout:  v.GetDuration("READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("WRITE_TIMEOUT"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:     v.GetString("DATABASE_PATH"),
			LogLevel: v.GetString("DB_LOG_LEVEL"),
		},
		Storage: Storage{
			Dir:            v.GetString("STORAGE_DIR"),
			PublicPath:     v.GetString("STORAGE_PUBLIC_PATH"),
			MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
			MaxImagePixels: v.GetInt64("MAX_IMAGE_PIXELS"),
		},
		Listing: Listing{
			PageSize: v.GetInt("PAGE_SIZE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Sweep: Sweep{
			Schedule:    v.GetString("SWEEP_SCHEDULE"),
			GracePeriod: v.GetDuration("SWEEP_GRACE_PERIOD"),
		},
		Audit: Audit{
			ReportDir:       v.GetString("IMPORT_REPORT_DIR"),
			RetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Session: Session{
			Lifetime:      v.GetDuration("SESSION_LIFETIME"),
			SecureCookies: v.GetBool("SESSION_SECURE_COOKIES"),
			CSRFSecret:    v.GetString("CSRF_SECRET"),
			BcryptCost:    v.GetInt("BCRYPT_COST"),
		},
		CORS: CORS{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}
}

// splitList parses a comma separated environment value.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
