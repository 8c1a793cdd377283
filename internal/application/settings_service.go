package application

import (
	"context"
	"fmt"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
)

// SettingsService owns pacing and limit configuration: global defaults plus
// optional per-account overrides, validated before they are persisted.
type SettingsService struct {
	repo ports.SettingsRepository
}

func NewSettingsService(repo ports.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) Get(ctx context.Context) (domain.SettingsConfig, error) {
	config, err := s.repo.Load(ctx)
	if err != nil {
		return domain.SettingsConfig{}, fmt.Errorf("load settings: %w", err)
	}
	return config, nil
}

// For resolves the effective settings for one account: its override when one
// exists, the defaults otherwise.
func (s *SettingsService) For(ctx context.Context, id domain.AccountID) (domain.Settings, error) {
	config, err := s.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	return config.For(id), nil
}

func (s *SettingsService) SetDefaults(ctx context.Context, settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	config, err := s.Get(ctx)
	if err != nil {
		return err
	}
	config.Defaults = settings

	if err := s.repo.Save(ctx, config); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *SettingsService) SetOverride(ctx context.Context, id domain.AccountID, settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	config, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if config.Overrides == nil {
		config.Overrides = make(map[domain.AccountID]domain.Settings)
	}
	config.Overrides[id] = settings

	if err := s.repo.Save(ctx, config); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ClearOverride removes the account's override. Clearing an absent override
// is a no-op.
func (s *SettingsService) ClearOverride(ctx context.Context, id domain.AccountID) error {
	config, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if _, ok := config.Overrides[id]; !ok {
		return nil
	}
	delete(config.Overrides, id)

	if err := s.repo.Save(ctx, config); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
