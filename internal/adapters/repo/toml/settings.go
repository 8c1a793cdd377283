package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	settingsPathKey     = "settings.path"
	settingsFile        = "settings.toml"
	settingsTempPattern = ".settings-*.toml.tmp"
)

type SettingsRepository struct {
	settingsPath string
	mu           *sync.RWMutex
}

var _ ports.SettingsRepository = (*SettingsRepository)(nil)

func NewSettingsRepository(cfg *viper.Viper) (*SettingsRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, configDir, settingsFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	cfg.SetDefault(settingsPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	settingsPath := cfg.GetString(settingsPathKey)
	if settingsPath == "" {
		return nil, errors.New("settings path is empty")
	}
	settingsPath, err = normalizeAccountsPath(settingsPath)
	if err != nil {
		return nil, err
	}

	return &SettingsRepository{settingsPath: settingsPath, mu: lockForPath(settingsPath)}, nil
}

type settingsFileSchema struct {
	Version   int                       `toml:"version"`
	Defaults  settingsSchema            `toml:"defaults"`
	Overrides map[string]settingsSchema `toml:"overrides,omitempty"`
}

type settingsSchema struct {
	FollowDelayMin     int `toml:"follow_delay_min"`
	FollowDelayMax     int `toml:"follow_delay_max"`
	UnfollowDelayMin   int `toml:"unfollow_delay_min"`
	UnfollowDelayMax   int `toml:"unfollow_delay_max"`
	DailyFollowLimit   int `toml:"daily_follow_limit"`
	DailyUnfollowLimit int `toml:"daily_unfollow_limit"`
	ActionsPerHour     int `toml:"actions_per_hour"`
}

func (r *SettingsRepository) Load(ctx context.Context) (domain.SettingsConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.SettingsConfig{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.settingsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.SettingsConfig{Defaults: domain.DefaultSettings()}, nil
		}
		return domain.SettingsConfig{}, fmt.Errorf("read settings file: %w", err)
	}

	var file settingsFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.SettingsConfig{}, fmt.Errorf("decode settings file: %w", err)
	}
	if file.Version > currentSchemaVersion {
		return domain.SettingsConfig{}, fmt.Errorf("unsupported settings schema version %d (current %d)", file.Version, currentSchemaVersion)
	}

	cfg := domain.SettingsConfig{
		Defaults:  settingsFromSchema(file.Defaults),
		Overrides: map[domain.AccountID]domain.Settings{},
	}
	for id, entry := range file.Overrides {
		cfg.Overrides[domain.AccountID(id)] = settingsFromSchema(entry)
	}

	return cfg, nil
}

func (r *SettingsRepository) Save(ctx context.Context, cfg domain.SettingsConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file := settingsFileSchema{
		Version:  currentSchemaVersion,
		Defaults: settingsToSchema(cfg.Defaults),
	}
	if len(cfg.Overrides) > 0 {
		file.Overrides = make(map[string]settingsSchema, len(cfg.Overrides))
		for id, entry := range cfg.Overrides {
			file.Overrides[string(id)] = settingsToSchema(entry)
		}
	}

	if err := os.MkdirAll(filepath.Dir(r.settingsPath), accountsDirMode); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode settings file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.settingsPath), settingsTempPattern)
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}

	if err := tempFile.Chmod(accountsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp settings file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}

	if err := os.Rename(tempName, r.settingsPath); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.settingsPath, accountsFileMode); err != nil {
		return fmt.Errorf("chmod settings file: %w", err)
	}

	return nil
}

func settingsToSchema(s domain.Settings) settingsSchema {
	return settingsSchema{
		FollowDelayMin:     s.FollowDelay.Min,
		FollowDelayMax:     s.FollowDelay.Max,
		UnfollowDelayMin:   s.UnfollowDelay.Min,
		UnfollowDelayMax:   s.UnfollowDelay.Max,
		DailyFollowLimit:   s.DailyFollowLimit,
		DailyUnfollowLimit: s.DailyUnfollowLimit,
		ActionsPerHour:     s.ActionsPerHour,
	}
}

func settingsFromSchema(s settingsSchema) domain.Settings {
	return domain.Settings{
		FollowDelay:        domain.DelayRange{Min: s.FollowDelayMin, Max: s.FollowDelayMax},
		UnfollowDelay:      domain.DelayRange{Min: s.UnfollowDelayMin, Max: s.UnfollowDelayMax},
		DailyFollowLimit:   s.DailyFollowLimit,
		DailyUnfollowLimit: s.DailyUnfollowLimit,
		ActionsPerHour:     s.ActionsPerHour,
	}
}
