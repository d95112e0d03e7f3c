package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Options is the command-line surface of the runner.
type Options struct {
	LogLevel    string `short:"l" long:"loglevel" default:"INFO" description:"Log events at this level and higher to the console. DEBUG, INFO, WARNING, ERROR, CRITICAL or a numeric level."`
	Valgrind    bool   `long:"valgrind" description:"Run fuzz targets under the valgrind memory error detector"`
	Exclude     string `short:"x" long:"exclude" description:"Comma-separated list of targets to exclude"`
	MergeDir    string `long:"m_dir" description:"Merge inputs from this directory into the seed_dir (needs a /target subdirectory per target)"`
	BuildConfig string `long:"config" env:"FUZZ_BUILD_CONFIG" default:"config.yaml" description:"Path to the build configuration file generated by the build system"`

	Args struct {
		SeedDir string   `positional-arg-name:"seed_dir" required:"yes" description:"The seed corpus root, one subfolder per fuzz target"`
		Targets []string `positional-arg-name:"target" description:"The target(s) to run; default is all"`
	} `positional-args:"yes"`
}

// ParseArgs parses the command line into Options. A .env file in the
// working directory is loaded first so flag env defaults can see it.
func ParseArgs(args []string) (*Options, error) {
	godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return &opts, nil
}

// buildConfig mirrors the configuration file the build system generates.
type buildConfig struct {
	Components struct {
		EnableFuzz bool `yaml:"enable_fuzz"`
	} `yaml:"components"`
	Environment struct {
		SrcDir   string `yaml:"srcdir"`
		BuildDir string `yaml:"builddir"`
	} `yaml:"environment"`
}

// AppConfig is the fully resolved runner configuration. It is built once at
// startup and passed in explicitly; nothing here is process-global.
type AppConfig struct {
	RunID       string
	ServiceName string
	LogLevel    string

	SeedDir     string
	Targets     []string
	Excluded    []string
	UseValgrind bool
	MergeDir    string

	EnableFuzz bool
	SrcDir     string
	BuildDir   string
}

// LoadConfig resolves Options, the environment and the build configuration
// file into an AppConfig.
func LoadConfig(opts *Options) (*AppConfig, error) {
	raw, err := os.ReadFile(opts.BuildConfig)
	if err != nil {
		return nil, fmt.Errorf("read build config: %w", err)
	}
	var bc buildConfig
	if err := yaml.Unmarshal(raw, &bc); err != nil {
		return nil, fmt.Errorf("parse build config %s: %w", opts.BuildConfig, err)
	}

	var excluded []string
	if opts.Exclude != "" {
		for _, name := range strings.Split(opts.Exclude, ",") {
			if name = strings.TrimSpace(name); name != "" {
				excluded = append(excluded, name)
			}
		}
	}

	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "fuzzrun"
	}

	return &AppConfig{
		RunID:       uuid.New().String(),
		ServiceName: serviceName,
		LogLevel:    opts.LogLevel,
		SeedDir:     opts.Args.SeedDir,
		Targets:     opts.Args.Targets,
		Excluded:    excluded,
		UseValgrind: opts.Valgrind,
		MergeDir:    opts.MergeDir,
		EnableFuzz:  bc.Components.EnableFuzz,
		SrcDir:      bc.Environment.SrcDir,
		BuildDir:    bc.Environment.BuildDir,
	}, nil
}

// ManifestPath is the build manifest listing fuzz targets.
func (c *AppConfig) ManifestPath() string {
	return filepath.Join(c.SrcDir, "src", "Makefile.test.include")
}

// TargetPath is the executable for a fuzz target.
func (c *AppConfig) TargetPath(target string) string {
	return filepath.Join(c.BuildDir, "src", "test", "fuzz", target)
}
