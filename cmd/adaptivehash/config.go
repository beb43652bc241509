package main

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/unicode/norm"

	"github.com/hasbyte1/go-adaptive-hashing/hashing"
	"github.com/hasbyte1/go-adaptive-hashing/memlimit"
)

const envPrefix = "ADAPTIVEHASH"

// Configuration keys shared by flags, environment variables, and config files.
const (
	keyMemoryLimit       = "memory-limit"
	keyUsedMemory        = "used-memory"
	keyConcurrency       = "concurrency"
	keyNormalize         = "normalize"
	keyDebug             = "debug"
	keyDefaultMemory     = "default-memory"
	keyMemoryMultiplier  = "memory-multiplier"
	keyDefaultThreads    = "default-threads"
	keyMaxThreads        = "max-threads"
	keyDefaultIterations = "default-iterations"
	keyMaxIterations     = "max-iterations"
	keyMemoryCutoff      = "memory-cutoff"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	def := hashing.DefaultCostConfig()
	v.SetDefault(keyDefaultMemory, def.DefaultMemoryKiB)
	v.SetDefault(keyMemoryMultiplier, def.MaxMemoryMultiplier)
	v.SetDefault(keyDefaultThreads, def.DefaultThreads)
	v.SetDefault(keyMaxThreads, def.MaxThreads)
	v.SetDefault(keyDefaultIterations, def.DefaultIterations)
	v.SetDefault(keyMaxIterations, def.MaxIterations)
	v.SetDefault(keyMemoryCutoff, "standard")
	v.SetDefault(keyConcurrency, 0)
	return v
}

func addConfigFlags(fs *pflag.FlagSet) {
	def := hashing.DefaultCostConfig()
	fs.String(keyMemoryLimit, "", `Memory limit to size against, e.g. "512M" or "-1" (default: the Go runtime limit)`)
	fs.String(keyUsedMemory, "", `Memory already in use, e.g. "64M" (default: the Go runtime figure)`)
	fs.Int(keyConcurrency, 0, "Maximum hashes computed at once (0: unbounded)")
	fs.Bool(keyNormalize, false, "Apply Unicode NFKC normalization to passwords")
	fs.Bool(keyDebug, false, "Log the selected parameters")
	fs.Int(keyDefaultMemory, def.DefaultMemoryKiB, "Default Argon2 memory cost in KiB")
	fs.Int(keyMemoryMultiplier, def.MaxMemoryMultiplier, "Ceiling of the final memory cost, as a multiple of the default")
	fs.Int(keyDefaultThreads, def.DefaultThreads, "Default Argon2 parallelism")
	fs.Int(keyMaxThreads, def.MaxThreads, "Maximum Argon2 parallelism")
	fs.Int(keyDefaultIterations, def.DefaultIterations, "Default Argon2 time cost")
	fs.Int(keyMaxIterations, def.MaxIterations, "Maximum Argon2 time cost")
	fs.String(keyMemoryCutoff, "standard", `Memory cutoff in KiB, or "standard", "conservative", "none"`)
}

func bindConfigFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err == nil && f.Name != "config" {
			err = v.BindPFlag(f.Name, f)
		}
	})
	return err
}

func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// loadCostConfig builds and validates a CostConfig from v.
func loadCostConfig(v *viper.Viper) (hashing.CostConfig, error) {
	cutoff, err := parseCutoff(v.GetString(keyMemoryCutoff))
	if err != nil {
		return hashing.CostConfig{}, err
	}
	cfg := hashing.CostConfig{
		DefaultMemoryKiB:    v.GetInt(keyDefaultMemory),
		MaxMemoryMultiplier: v.GetInt(keyMemoryMultiplier),
		DefaultThreads:      v.GetInt(keyDefaultThreads),
		MaxThreads:          v.GetInt(keyMaxThreads),
		DefaultIterations:   v.GetInt(keyDefaultIterations),
		MaxIterations:       v.GetInt(keyMaxIterations),
		MemoryCutoffKiB:     cutoff,
		Debug:               v.GetBool(keyDebug),
	}
	if err := cfg.Validate(); err != nil {
		return hashing.CostConfig{}, err
	}
	return cfg, nil
}

func parseCutoff(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return hashing.CutoffStandard, nil
	case "conservative":
		return hashing.CutoffConservative, nil
	case "none":
		return hashing.NoCutoff, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: memory cutoff %q", hashing.ErrInvalidOption, s)
	}
	return n, nil
}

// memorySource returns a StaticSource when either memory figure is
// overridden, filling the other from the runtime.
func memorySource(v *viper.Viper) (memlimit.Source, error) {
	limit := v.GetString(keyMemoryLimit)
	usedRaw := v.GetString(keyUsedMemory)
	rt := memlimit.NewRuntimeSource()
	if limit == "" && usedRaw == "" {
		return rt, nil
	}

	src := memlimit.StaticSource{Limit: limit}
	if limit == "" {
		src.Limit = rt.MemoryLimit()
	}
	if usedRaw == "" {
		src.Used = rt.UsedMemory()
	} else {
		used, err := memlimit.Parse(usedRaw)
		if err != nil {
			return nil, fmt.Errorf("used memory: %w", err)
		}
		src.Used = used
	}
	return src, nil
}

func newHasher(v *viper.Viper, logOut io.Writer) (*hashing.AdaptiveHasher, error) {
	cfg, err := loadCostConfig(v)
	if err != nil {
		return nil, err
	}
	src, err := memorySource(v)
	if err != nil {
		return nil, err
	}
	opts := []hashing.Option{
		hashing.WithMemorySource(src),
		hashing.WithLogger(log.New(logOut, "", log.LstdFlags)),
		hashing.WithConcurrency(v.GetInt(keyConcurrency)),
	}
	if v.GetBool(keyNormalize) {
		opts = append(opts, hashing.WithNormalization(norm.NFKC))
	}
	return hashing.NewAdaptiveHasher(cfg, opts...)
}
