package skill

import (
	"fmt"
	"log/slog"
	"slices"

	"opendialog/internal/domain"
)

// BuiltinConfig tunes the built-in skills and where to find prompt
// packs.
type BuiltinConfig struct {
	MaxRetries    int
	RestartOnDeny bool
	PromptDir     string
	Disabled      []string
	Logger        *slog.Logger
}

// RegisterBuiltins registers the shipped skills, minus any disabled
// ones, with prompt packs applied. Errors here are configuration
// errors: the caller should refuse to start.
func RegisterBuiltins(r *Registry, cfg BuiltinConfig) error {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	booking, err := NewRestaurantBooking(BookingConfig{
		MaxRetries:    cfg.MaxRetries,
		RestartOnDeny: cfg.RestartOnDeny,
	})
	if err != nil {
		return fmt.Errorf("build restaurant booking skill: %w", err)
	}

	wifi, err := NewWifiTroubleshooting(cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("build wifi troubleshooting skill: %w", err)
	}

	var packs []PromptPack
	if cfg.PromptDir != "" {
		packs, err = LoadPromptPacks(cfg.PromptDir, cfg.Logger)
		if err != nil {
			return err
		}
	}

	for _, def := range []domain.SkillDefinition{booking, wifi} {
		if slices.Contains(cfg.Disabled, def.Name) {
			cfg.Logger.Info("built-in skill disabled", "name", def.Name)
			continue
		}
		for _, pack := range packs {
			if pack.Skill != def.Name {
				continue
			}
			if err := applyPack(def, pack); err != nil {
				return err
			}
		}
		if err := r.Register(def); err != nil {
			return err
		}
	}

	return nil
}
