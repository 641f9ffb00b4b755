package service

import (
	"context"

	"github.com/smkbandara/cbt-backend/internal/config"
	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/repository"
)

// SettingService owns admin-editable application settings.
type SettingService struct {
	repo *repository.SettingRepository
	cfg  *config.Config
}

// NewSettingService creates a new SettingService.
func NewSettingService(repo *repository.SettingRepository, cfg *config.Config) *SettingService {
	return &SettingService{repo: repo, cfg: cfg}
}

// List returns all stored settings.
func (s *SettingService) List(ctx context.Context) ([]model.AppSetting, error) {
	return s.repo.List(ctx)
}

// Set stores one setting.
func (s *SettingService) Set(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, key, value)
}

// ReportWebhookURL resolves the result sink endpoint: the stored setting
// wins, the environment value is the fallback. Empty means reporting is off.
func (s *SettingService) ReportWebhookURL(ctx context.Context) (string, error) {
	url, err := s.repo.Get(ctx, model.SettingReportWebhookURL)
	if err != nil {
		return "", err
	}
	if url == "" {
		url = s.cfg.ReportWebhookURL
	}
	return url, nil
}
