package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("PROGRESS_SYNC_CRON", "")

	LoadConfig()

	assert.Equal(t, "postgres", AppConfig.DBDriver)
	assert.Equal(t, 587, AppConfig.SMTPPort)
	assert.Equal(t, "30 2 * * *", AppConfig.ProgressSyncCron)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/progress.db")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("EMAIL_PROVIDER", "sendgrid")

	LoadConfig()

	assert.Equal(t, "sqlite", AppConfig.DBDriver)
	assert.Equal(t, "/tmp/progress.db", AppConfig.DBPath)
	assert.Equal(t, 2525, AppConfig.SMTPPort)
	assert.Equal(t, "sendgrid", AppConfig.EmailProvider)
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-number")
	assert.Equal(t, 587, getEnvInt("SMTP_PORT", 587))
}
