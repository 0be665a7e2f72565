// Package config loads CLI configuration from defaults, an optional
// rowreduce.yaml, ROWREDUCE_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pkg.jsn.cam/rowreduce/pkg/rowreduce"
)

const envPrefix = "ROWREDUCE"

// Config is the user-facing configuration. Sizes are humanized strings.
type Config struct {
	ChunkSize         string `mapstructure:"chunk_size"`
	Parallelism       int    `mapstructure:"parallelism"`
	Strategy          string `mapstructure:"strategy"`
	ReadMode          string `mapstructure:"read_mode"`
	ReduceStrategy    string `mapstructure:"reduce_strategy"`
	ReduceShards      int    `mapstructure:"reduce_shards"`
	Delimiter         string `mapstructure:"delimiter"`
	AllowUnterminated bool   `mapstructure:"allow_unterminated"`
	SkipMalformed     bool   `mapstructure:"skip_malformed"`
	LogLevel          string `mapstructure:"log_level"`
	Format            string `mapstructure:"format"`
}

// Default mirrors rowreduce.DefaultConfig.
func Default() Config {
	d := rowreduce.DefaultConfig()
	return Config{
		ChunkSize:      humanize.Bytes(uint64(d.TargetChunkSize)),
		Parallelism:    0,
		Strategy:       string(d.Strategy),
		ReadMode:       string(d.ReadMode),
		ReduceStrategy: string(d.ReduceStrategy),
		Delimiter:      string(d.Delimiter),
		LogLevel:       "info",
		Format:         "brace",
	}
}

// Load resolves the configuration. configFile may be empty, in which case
// rowreduce.yaml is looked up in the working directory and silently skipped
// when absent. Flags whose name matches a key (with '-' for '_') override
// everything else when set.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("rowreduce")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	keys := configKeys(&cfg)
	setDefaults(v, &cfg)
	bindEnvs(v, keys)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !slices.Contains(keys, key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil {
				bindErr = multierror.Append(bindErr, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// ToRowreduce converts c into an engine config and validates it.
func (c *Config) ToRowreduce() (rowreduce.Config, error) {
	var errs *multierror.Error

	out := rowreduce.Config{
		MaxParallelism:    c.Parallelism,
		Strategy:          rowreduce.Strategy(c.Strategy),
		ReadMode:          rowreduce.ReadMode(c.ReadMode),
		ReduceStrategy:    rowreduce.ReduceStrategy(c.ReduceStrategy),
		ReduceShards:      c.ReduceShards,
		AllowUnterminated: c.AllowUnterminated,
		SkipMalformed:     c.SkipMalformed,
	}
	if out.MaxParallelism == 0 {
		out.MaxParallelism = runtime.GOMAXPROCS(0)
	}

	size, err := humanize.ParseBytes(c.ChunkSize)
	switch {
	case err != nil:
		errs = multierror.Append(errs, fmt.Errorf("chunk_size %q: %w", c.ChunkSize, err))
	case size == 0 || size > 1<<62:
		errs = multierror.Append(errs, fmt.Errorf("%w: %s", rowreduce.ErrInvalidChunkSize, c.ChunkSize))
	default:
		out.TargetChunkSize = int64(size)
	}

	if len(c.Delimiter) != 1 {
		errs = multierror.Append(errs, fmt.Errorf("%w: %q must be a single byte", rowreduce.ErrInvalidDelimiter, c.Delimiter))
	} else {
		out.Delimiter = c.Delimiter[0]
	}

	if err := errs.ErrorOrNil(); err != nil {
		return rowreduce.Config{}, err
	}
	if err := out.Validate(); err != nil {
		return rowreduce.Config{}, err
	}
	return out, nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// configKeys lists the viper keys of every leaf field in cfg.
func configKeys(cfg any, parts ...string) []string {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}

	var keys []string
	for i := range typ.NumField() {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(slices.Clone(parts), tag)
		if f.Type.Kind() == reflect.Struct {
			keys = append(keys, configKeys(val.Field(i).Interface(), key...)...)
			continue
		}
		keys = append(keys, strings.Join(key, "."))
	}
	return keys
}

func setDefaults(v *viper.Viper, cfg *Config) {
	val := reflect.ValueOf(cfg).Elem()
	typ := val.Type()
	for i := range typ.NumField() {
		v.SetDefault(typ.Field(i).Tag.Get("mapstructure"), val.Field(i).Interface())
	}
}

// bindEnvs registers every key so viper consults the environment when
// unmarshalling, e.g. chunk_size becomes ROWREDUCE_CHUNK_SIZE.
func bindEnvs(v *viper.Viper, keys []string) {
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}
