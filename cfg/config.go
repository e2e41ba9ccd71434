// Package cfg is the viper-backed configuration layer: a typed Config
// struct, a BindFlags that wires pflag flags to viper keys, and a Load
// that unmarshals into the struct through the mapstructure decode hooks
// composed in decode_hook.go.
package cfg

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the top-level configuration tree for a Kernel instance: slab
// cache tunables, node-cache reclaim tunables, and the logging section,
// unmarshaled from flags/env/file by Load.
type Config struct {
	Slab    SlabConfig    `yaml:"slab" mapstructure:"slab"`
	VFS     VFSConfig     `yaml:"vfs" mapstructure:"vfs"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// SlabConfig holds the magazine layer and reclaim worker settings.
// ReclaimInterval sets the demo CLI's reclaim worker tick.
// MagazineCapacity, MagazineFullAge and MagazineEmptyAge (defaults 16, 5s,
// 20s) are parsed and bound to flags, but internal/slab does not read
// them: it uses its own fixed magazine capacity of 16 and depot ages of
// 5s (full) and 20s (empty).
type SlabConfig struct {
	MagazineCapacity int           `yaml:"magazine-capacity" mapstructure:"magazine-capacity"`
	ReclaimInterval  time.Duration `yaml:"reclaim-interval" mapstructure:"reclaim-interval"`
	MagazineFullAge  time.Duration `yaml:"magazine-full-age" mapstructure:"magazine-full-age"`
	MagazineEmptyAge time.Duration `yaml:"magazine-empty-age" mapstructure:"magazine-empty-age"`
}

// VFSConfig holds node-cache / path-lookup settings. They are parsed and
// bound to flags, but internal/vfsnode does not read them: its symlink
// depth is the fixed SymlinkLimitMax (16) and it enforces no path length
// limit.
type VFSConfig struct {
	SymlinkLimit  int `yaml:"symlink-limit" mapstructure:"symlink-limit"`
	MaxPathLength int `yaml:"max-path-length" mapstructure:"max-path-length"`
}

// LoggingConfig mirrors internal/logger.Config field-for-field so Load can
// decode straight into it and hand it to logger.Init.
type LoggingConfig struct {
	Format     LogFormat   `yaml:"format" mapstructure:"format"`
	Severity   LogSeverity `yaml:"severity" mapstructure:"severity"`
	FilePath   string      `yaml:"file-path" mapstructure:"file-path"`
	MaxSizeMB  int         `yaml:"max-size-mb" mapstructure:"max-size-mb"`
	MaxBackups int         `yaml:"max-backups" mapstructure:"max-backups"`
	MaxAgeDays int         `yaml:"max-age-days" mapstructure:"max-age-days"`
}

// Defaults returns the zero-config-file, zero-flags baseline.
func Defaults() Config {
	return Config{
		Slab: SlabConfig{
			MagazineCapacity: 16,
			ReclaimInterval:  500 * time.Millisecond,
			MagazineFullAge:  5 * time.Second,
			MagazineEmptyAge: 20 * time.Second,
		},
		VFS: VFSConfig{
			SymlinkLimit:  16,
			MaxPathLength: 4096,
		},
		Logging: LoggingConfig{
			Format:   FormatJSON,
			Severity: SeverityInfo,
		},
	}
}

// BindFlags registers the command-line surface and binds each flag to its
// viper key: every flag has a matching viper.BindPFlag call so flags, env
// vars and config file values all resolve through the same viper instance.
func BindFlags(v *viper.Viper, flagSet *pflag.FlagSet) error {
	d := Defaults()

	flagSet.Int("slab-magazine-capacity", d.Slab.MagazineCapacity, "Per-CPU magazine capacity (rounds).")
	flagSet.Duration("slab-reclaim-interval", d.Slab.ReclaimInterval, "Interval between slab depot reclaim sweeps.")
	flagSet.Duration("slab-magazine-full-age", d.Slab.MagazineFullAge, "Age after which a full depot magazine is reclaimed.")
	flagSet.Duration("slab-magazine-empty-age", d.Slab.MagazineEmptyAge, "Age after which an empty depot magazine is reclaimed.")
	flagSet.Int("vfs-symlink-limit", d.VFS.SymlinkLimit, "Maximum symbolic-link recursion depth.")
	flagSet.Int("vfs-max-path-length", d.VFS.MaxPathLength, "Maximum accepted pathname length in bytes.")
	flagSet.String("log-format", string(d.Logging.Format), "Log encoding: json or text.")
	flagSet.String("log-severity", string(d.Logging.Severity), "Minimum log severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF.")
	flagSet.String("log-file", d.Logging.FilePath, "Rotated log file path; empty logs to stderr.")

	binds := map[string]string{
		"slab-magazine-capacity":  "slab.magazine-capacity",
		"slab-reclaim-interval":   "slab.reclaim-interval",
		"slab-magazine-full-age":  "slab.magazine-full-age",
		"slab-magazine-empty-age": "slab.magazine-empty-age",
		"vfs-symlink-limit":       "vfs.symlink-limit",
		"vfs-max-path-length":     "vfs.max-path-length",
		"log-format":              "logging.format",
		"log-severity":            "logging.severity",
		"log-file":                "logging.file-path",
	}
	for flag, key := range binds {
		if err := v.BindPFlag(key, flagSet.Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// Load unmarshals v's current state (flags, env, config file, in that
// precedence) into a Config, through the DecodeHook composition in
// decode_hook.go.
func Load(v *viper.Viper) (*Config, error) {
	c := Defaults()
	if err := v.Unmarshal(&c, viper.DecodeHook(DecodeHook())); err != nil {
		return nil, err
	}
	return &c, nil
}
