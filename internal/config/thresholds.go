package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Thresholds are the tunable alerting levels that can change without a restart.
type Thresholds struct {
	BulkWarning        int     `mapstructure:"bulkWarning"`
	BulkCritical       int     `mapstructure:"bulkCritical"`
	MonthlyTarget      int     `mapstructure:"monthlyTarget"`
	UrgentDayOfMonth   int     `mapstructure:"urgentDayOfMonth"`
	OnTrackRatio       float64 `mapstructure:"onTrackRatio"`
	ReminderDayOfMonth int     `mapstructure:"reminderDayOfMonth"`
	FixedDateLeadDays  int     `mapstructure:"fixedDateLeadDays"`
}

func DefaultThresholds(cfg Config) Thresholds {
	return Thresholds{
		BulkWarning:        orDefault(cfg.Masses.BulkWarningThreshold, 10),
		BulkCritical:       orDefault(cfg.Masses.BulkCriticalThreshold, 5),
		MonthlyTarget:      orDefault(cfg.Masses.MonthlyPersonalTarget, 3),
		UrgentDayOfMonth:   24,
		OnTrackRatio:       0.67,
		ReminderDayOfMonth: 20,
		FixedDateLeadDays:  3,
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type ThresholdHolder struct {
	current atomic.Value // holds Thresholds
}

// NewStaticThresholdHolder returns a holder that never reloads.
func NewStaticThresholdHolder(t Thresholds) *ThresholdHolder {
	holder := &ThresholdHolder{}
	holder.current.Store(t)
	return holder
}

func NewThresholdHolder(cfg Config, log *zap.Logger) (*ThresholdHolder, error) {
	log = log.Named("config.thresholds")
	v := viper.New()

	v.SetConfigName("thresholds")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/masstrack")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MASSTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultThresholds(cfg)
	v.SetDefault("thresholds.bulkWarning", defaults.BulkWarning)
	v.SetDefault("thresholds.bulkCritical", defaults.BulkCritical)
	v.SetDefault("thresholds.monthlyTarget", defaults.MonthlyTarget)
	v.SetDefault("thresholds.urgentDayOfMonth", defaults.UrgentDayOfMonth)
	v.SetDefault("thresholds.onTrackRatio", defaults.OnTrackRatio)
	v.SetDefault("thresholds.reminderDayOfMonth", defaults.ReminderDayOfMonth)
	v.SetDefault("thresholds.fixedDateLeadDays", defaults.FixedDateLeadDays)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var t Thresholds
	if err := v.UnmarshalKey("thresholds", &t); err != nil {
		return nil, err
	}
	if err := validateThresholds(t); err != nil {
		return nil, err
	}

	holder := NewStaticThresholdHolder(t)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Thresholds
		if err := v.UnmarshalKey("thresholds", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := holder.Store(updated); err != nil {
			log.Warn("invalid thresholds ignored", zap.Error(err))
			return
		}
		log.Info("thresholds reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *ThresholdHolder) Get() Thresholds {
	return h.current.Load().(Thresholds)
}

// Store swaps in t when it is valid.
func (h *ThresholdHolder) Store(t Thresholds) error {
	if err := validateThresholds(t); err != nil {
		return err
	}
	h.current.Store(t)
	return nil
}

func validateThresholds(t Thresholds) error {
	if t.BulkWarning <= 0 || t.BulkCritical <= 0 {
		return errors.New("thresholds.bulkWarning and thresholds.bulkCritical must be positive")
	}
	if t.BulkCritical > t.BulkWarning {
		return errors.New("thresholds.bulkCritical cannot exceed thresholds.bulkWarning")
	}
	if t.MonthlyTarget < 0 {
		return errors.New("thresholds.monthlyTarget cannot be negative")
	}
	if t.UrgentDayOfMonth < 1 || t.UrgentDayOfMonth > 31 {
		return errors.New("thresholds.urgentDayOfMonth must be between 1 and 31")
	}
	if t.OnTrackRatio <= 0 || t.OnTrackRatio > 1 {
		return errors.New("thresholds.onTrackRatio must be in (0, 1]")
	}
	return nil
}
