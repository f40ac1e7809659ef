package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr      string
	DBDriver  string
	DBDSN     string
	JWTSecret string

	WithdrawalGrace time.Duration

	UploadDir string

	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	MailFrom    string
	ExtraAdminEmails []string

	QueueSize       int
	DispatchWorkers int

	FrontendURL string
}

// Load reads settings from the environment, falling back to an optional
// academiqa.yaml in the working directory. Environment wins.
func Load() *Config {
	v := viper.New()

	v.SetDefault("addr", ":8000")
	v.SetDefault("db_driver", "mysql")
	v.SetDefault("db_dsn", "admin:12345678@tcp(127.0.0.1:3306)/academiqa?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("jwt_secret", "supersecretkey")
	v.SetDefault("withdrawal_grace_hours", 48)
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("queue_size", 256)
	v.SetDefault("dispatch_workers", 4)
	v.SetDefault("frontend_url", "http://localhost:5173")

	v.SetConfigName("academiqa")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetEnvPrefix("ACADEMIQA")
	v.AutomaticEnv()

	return &Config{
		Addr:             v.GetString("addr"),
		DBDriver:         v.GetString("db_driver"),
		DBDSN:            v.GetString("db_dsn"),
		JWTSecret:        v.GetString("jwt_secret"),
		WithdrawalGrace:  time.Duration(v.GetInt("withdrawal_grace_hours")) * time.Hour,
		UploadDir:        v.GetString("upload_dir"),
		SMTPHost:         v.GetString("smtp_host"),
		SMTPPort:         v.GetInt("smtp_port"),
		SMTPUser:         v.GetString("smtp_user"),
		SMTPPass:         v.GetString("smtp_pass"),
		MailFrom:         v.GetString("mail_from"),
		ExtraAdminEmails: v.GetStringSlice("extra_admin_emails"),
		QueueSize:        v.GetInt("queue_size"),
		DispatchWorkers:  v.GetInt("dispatch_workers"),
		FrontendURL:      v.GetString("frontend_url"),
	}
}
