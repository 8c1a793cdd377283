package ports

import (
	"context"

	"github.com/PreboozedGoose/Vulture/internal/domain"
)

type SettingsRepository interface {
	Load(ctx context.Context) (domain.SettingsConfig, error)
	Save(ctx context.Context, cfg domain.SettingsConfig) error
}
