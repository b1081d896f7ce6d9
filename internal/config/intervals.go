package config

import (
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

// IntervalSource 保养间隔表，可由配置文件覆盖并热加载
//
// File entries are overlaid on the built-in table, so a file only needs the
// models it changes:
//
//	intervals:
//	  FORD/TRANSIT:
//	    oil_change_km: 18000
//	    timing_belt_km: 150000
type IntervalSource struct {
	table    atomic.Pointer[model.IntervalTable]
	v        *viper.Viper
	logger   *zap.Logger
	onChange func(model.IntervalTable)
}

// NewIntervalSource loads path (YAML, JSON or TOML by extension). An empty path
// serves the built-in table.
func NewIntervalSource(path string, logger *zap.Logger) (*IntervalSource, error) {
	s := &IntervalSource{logger: logger.Named("intervals")}
	defaults := model.DefaultIntervals()
	s.table.Store(&defaults)
	if path == "" {
		return s, nil
	}

	s.v = viper.New()
	s.v.SetConfigFile(path)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Intervals returns the current table
func (s *IntervalSource) Intervals() model.IntervalTable {
	return *s.table.Load()
}

// OnChange registers fn to run after every successful reload
func (s *IntervalSource) OnChange(fn func(model.IntervalTable)) {
	s.onChange = fn
}

// Reload re-reads the file and swaps the table
func (s *IntervalSource) Reload() error {
	if s.v == nil {
		return nil
	}
	if err := s.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read intervals file: %w", err)
	}
	var raw map[string]model.MaintenanceInterval
	if err := s.v.UnmarshalKey("intervals", &raw); err != nil {
		return fmt.Errorf("decode intervals: %w", err)
	}

	table := model.DefaultIntervals()
	for k, iv := range model.IntervalTable(raw).Normalize() {
		table[k] = iv
	}
	s.table.Store(&table)
	s.logger.Info("maintenance intervals loaded",
		zap.String("file", s.v.ConfigFileUsed()),
		zap.Int("entries", len(table)),
	)
	if s.onChange != nil {
		s.onChange(table)
	}
	return nil
}

// Watch reloads the table whenever the file changes. A failed reload keeps
// the previous table.
func (s *IntervalSource) Watch() {
	if s.v == nil {
		return
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := s.Reload(); err != nil {
			s.logger.Warn("reload intervals", zap.String("file", e.Name), zap.Error(err))
		}
	})
	s.v.WatchConfig()
}
