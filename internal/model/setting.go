package model

import "time"

// Well-known setting keys.
const (
	// SettingReportWebhookURL is the result sink endpoint, admin-editable.
	SettingReportWebhookURL = "report_webhook_url"
)

// AppSetting is a single key/value application setting.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateSettingsRequest is the payload for bulk-updating settings.
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}
