// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/quixcc/quixbuild/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "quixbuild"
	// ConfigFileName is the per-repository config file looked up in the working directory.
	ConfigFileName = ".quixbuild.toml"
	// EnvPrefix prefixes environment overrides: QUIXBUILD_CONTAINER_ENGINE=podman.
	EnvPrefix = "QUIXBUILD"

	maxConfigSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// ErrConfigExists is returned by WriteDefault when the target file exists.
var ErrConfigExists = errors.New("config file already exists")

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() *Config {
	return &Config{
		RootMarker: "libnitrate-parser",
		CleanDirs:  []string{".build", "build"},
		Container: ContainerConfig{
			Engine:        ContainerEngineDocker,
			MountPath:     "/app",
			BuildAttempts: 1,
		},
		Images: ImagesConfig{
			Debug:   ImageConfig{Tag: "quixcc-debug:latest", Dockerfile: "tools/Debug.Dockerfile"},
			Release: ImageConfig{Tag: "quixcc-release:latest", Dockerfile: "tools/Release.Dockerfile"},
			Runner:  ImageConfig{Tag: "qpkg-run:latest", Dockerfile: "tools/Runner.Dockerfile"},
		},
		Output: OutputConfig{
			BinDir:     "build/bin",
			LibDir:     "build/lib",
			LibPattern: "*.so",
		},
		Snap:  CommandConfig{Command: "snapcraft"},
		Strip: CommandConfig{Command: "strip"},
		Log:   LogConfig{Level: LogLevelInfo},
	}
}

// ResolvePath returns the config file Load would read and whether it exists.
func ResolvePath(opts LoadOptions) (string, bool) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, fileExists(opts.ConfigFilePath)
	}
	p := filepath.Join(opts.WorkDir, ConfigFileName)
	return p, fileExists(p)
}

// loadWithOptions performs option-driven config loading. It returns the
// path of the file that was read, or "" when only defaults and environment
// applied.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfgPath, exists := ResolvePath(opts)
	if opts.ConfigFilePath != "" && !exists {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(opts.ConfigFilePath).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Run 'quixbuild config init' to create a default configuration").
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	resolvedPath := ""
	if exists {
		if err := loadTOMLIntoViper(v, cfgPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(cfgPath).
				WithSuggestion("Check that the file contains valid TOML").
				WithSuggestion("Run 'quixbuild config show' to see the expected keys").
				Wrap(err).
				BuildError()
		}
		resolvedPath = cfgPath
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for typos").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("root_marker", d.RootMarker)
	v.SetDefault("clean_dirs", d.CleanDirs)
	v.SetDefault("container.engine", string(d.Container.Engine))
	v.SetDefault("container.mount_path", d.Container.MountPath)
	v.SetDefault("container.build_attempts", d.Container.BuildAttempts)
	for name, img := range map[string]ImageConfig{
		"debug":   d.Images.Debug,
		"release": d.Images.Release,
		"runner":  d.Images.Runner,
	} {
		v.SetDefault("images."+name+".tag", img.Tag)
		v.SetDefault("images."+name+".dockerfile", img.Dockerfile)
	}
	v.SetDefault("output.bin_dir", d.Output.BinDir)
	v.SetDefault("output.lib_dir", d.Output.LibDir)
	v.SetDefault("output.lib_pattern", d.Output.LibPattern)
	v.SetDefault("snap.command", d.Snap.Command)
	v.SetDefault("strip.command", d.Strip.Command)
	v.SetDefault("log.level", string(d.Log.Level))
}

// loadTOMLIntoViper parses a TOML file, validates it against the #Config
// schema, and merges its contents into Viper.
func loadTOMLIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigSize)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("%s:%d:%d: %s", path, row, col, derr.Error())
		}
		return fmt.Errorf("%s: %w", path, err)
	}

	configMap, err := validateAgainstSchema(raw, path)
	if err != nil {
		return err
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func validateAgainstSchema(raw map[string]any, path string) (map[string]any, error) {
	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.Encode(raw)
	if userValue.Err() != nil {
		return nil, formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, formatCUEError(err, path)
	}
	return configMap, nil
}

// MarshalTOML renders cfg as a TOML document.
func MarshalTOML(cfg *Config) ([]byte, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}

// WriteDefault writes the default configuration to path. An existing file is
// only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	body, err := MarshalTOML(DefaultConfig())
	if err != nil {
		return err
	}

	header := "# " + AppName + " configuration.\n" +
		"# Every key is optional; environment variables named " + EnvPrefix + "_<SECTION>_<KEY> take precedence.\n\n"
	if err := os.WriteFile(path, append([]byte(header), body...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
