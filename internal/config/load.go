package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/rigbuild/rig/internal/constants"
	"github.com/rigbuild/rig/internal/errors"
)

// configDirName is the hidden directory that holds rig config files, both
// globally (under the home directory) and per workspace.
const configDirName = ".rig"

// newViperInstance creates a new Viper instance with standard rig
// configuration: defaults, RIG_ env prefix and key replacer.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// viperDecoderOption returns the decode hooks used when unmarshaling:
// duration strings ("5s") and comma-separated slices.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// isConfigNotFoundError returns true if the error is a viper config file
// not found error. Missing config files are expected, not failures.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// Load reads configuration from all available sources with proper precedence.
// Missing config files are not errors; invalid content is.
//
// The context parameter is accepted for API consistency; config reads are
// fast local I/O and do not honor cancellation.
func Load(_ context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	return finishLoad(v)
}

// Overrides carries CLI flag values that take precedence over every other
// configuration source.
type Overrides struct {
	// WorkspaceRoot overrides workspace.root when non-empty.
	WorkspaceRoot string

	// Pipeline overrides workspace.pipeline when non-empty.
	Pipeline string
}

// LoadWithOverrides loads configuration and then applies CLI flag overrides
// on top.
func LoadWithOverrides(_ context.Context, o Overrides) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	// Project config is found relative to the (possibly overridden) root.
	if o.WorkspaceRoot != "" {
		v.Set("workspace.root", o.WorkspaceRoot)
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}
	// Re-apply: project config must not undo an explicit flag.
	if o.WorkspaceRoot != "" {
		v.Set("workspace.root", o.WorkspaceRoot)
	}
	if o.Pipeline != "" {
		v.Set("workspace.pipeline", o.Pipeline)
	}

	return finishLoad(v)
}

// finishLoad unmarshals, applies environment tool overrides, resolves paths
// and validates.
func finishLoad(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	applyToolEnvOverrides(&cfg)

	if err := resolvePaths(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// loadGlobalConfig merges ~/.rig/config.yaml if present.
func loadGlobalConfig(v *viper.Viper) error {
	home, err := os.UserHomeDir()
	if err != nil {
		// No home directory (containers, stripped environments): global
		// config simply does not apply.
		return nil
	}
	return mergeConfigFile(v, filepath.Join(home, configDirName, "config.yaml"))
}

// loadProjectConfig merges <root>/.rig/config.yaml if present.
func loadProjectConfig(v *viper.Viper) error {
	root := v.GetString("workspace.root")
	if root == "" {
		root = "."
	}
	return mergeConfigFile(v, filepath.Join(root, configDirName, "config.yaml"))
}

// mergeConfigFile merges one config file into the viper instance,
// tolerating a missing file.
func mergeConfigFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		if isConfigNotFoundError(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read config %s", path)
	}
	return nil
}

// applyToolEnvOverrides folds RIG_TOOL_<NAME>=<path> environment variables
// into the tools map. Env entries win over config file entries; the tool
// name is the suffix, lowercased (RIG_TOOL_PYTHON -> tools["python"]).
func applyToolEnvOverrides(cfg *Config) {
	if cfg.Tools == nil {
		cfg.Tools = map[string]string{}
	}
	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, constants.EnvToolPrefix) {
			continue
		}
		key, value, ok := strings.Cut(entry[len(constants.EnvToolPrefix):], "=")
		if !ok || key == "" || value == "" {
			continue
		}
		cfg.Tools[strings.ToLower(key)] = value
	}
}

// resolvePaths makes the workspace root absolute and resolves the pipeline,
// results and dist paths against it.
func resolvePaths(cfg *Config) error {
	root := cfg.Workspace.Root
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errors.Wrap(err, "failed to resolve workspace root")
	}
	cfg.Workspace.Root = absRoot

	cfg.Workspace.Pipeline = resolveAgainst(absRoot, cfg.Workspace.Pipeline)
	cfg.Workspace.ResultsDir = resolveAgainst(absRoot, cfg.Workspace.ResultsDir)
	cfg.Workspace.DistDir = resolveAgainst(absRoot, cfg.Workspace.DistDir)
	return nil
}

func resolveAgainst(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
