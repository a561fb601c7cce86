// Package config defines the engine's versioned configuration, loaded from
// YAML and overridable by VORPAL_-prefixed environment variables, the way
// configuration/configuration.go and configuration/parser.go do it for
// distribution's REGISTRY_ prefix.
package config

import (
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strings"

	"gopkg.in/yaml.v2"
)

func defaultSandboxDriver() string {
	if runtime.GOOS == "darwin" {
		return "darwin"
	}
	return "linux"
}

// Version is the configuration schema version.
type Version string

// CurrentVersion is the only version this engine understands.
const CurrentVersion Version = "0.1"

// Configuration is the top-level engine configuration.
type Configuration struct {
	Version Version `yaml:"version"`

	// Log configures the structured logger (pkg/vlog).
	Log Log `yaml:"log"`

	// Store is the on-disk content-addressed store layout root (spec.md §3).
	Store Store `yaml:"store"`

	// Registry configures the registry service's backend and listen address.
	Registry Registry `yaml:"registry"`

	// Agent configures the agent service's listen address.
	Agent Service `yaml:"agent"`

	// Worker configures the worker service's listen address and sandbox
	// driver selection.
	Worker Worker `yaml:"worker"`
}

// Log configures the logging subsystem.
type Log struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "text" or "json"
}

// Store configures the on-disk layout root and key paths (spec.md §3).
type Store struct {
	Root       string `yaml:"root"`
	PrivateKey string `yaml:"privateKey,omitempty"`
	PublicKey  string `yaml:"publicKey,omitempty"`
}

// Service is a bare listen-address configuration.
type Service struct {
	Address string `yaml:"address,omitempty"`
}

// Registry configures which backend the registry service delegates to
// (spec.md §4.6).
type Registry struct {
	Service
	Backend string      `yaml:"backend"` // "local", "s3", "cicache"
	S3      S3Backend   `yaml:"s3,omitempty"`
	CICache CICacheBackend `yaml:"cicache,omitempty"`
}

// S3Backend configures the object-storage registry backend.
type S3Backend struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
}

// CICacheBackend configures the CI-cache registry backend.
type CICacheBackend struct {
	BaseURL    string `yaml:"baseUrl"`
	Token      string `yaml:"token,omitempty"`
	ScratchDir string `yaml:"scratchDir,omitempty"`
}

// Worker configures the worker service.
type Worker struct {
	Service
	SandboxDriver string `yaml:"sandboxDriver,omitempty"` // "linux", "darwin"
	RootfsDigest  string `yaml:"rootfsDigest,omitempty"`
}

// Default returns a Configuration with the engine's defaults, the values a
// freshly `vorpal init`-ed config would carry.
func Default(storeRoot string) *Configuration {
	return &Configuration{
		Version: CurrentVersion,
		Log:     Log{Level: "info", Format: "text"},
		Store: Store{
			Root:       storeRoot,
			PrivateKey: storeRoot + "/key/private.pem",
			PublicKey:  storeRoot + "/key/public.pem",
		},
		Registry: Registry{Service: Service{Address: "localhost:23151"}, Backend: "local"},
		Agent:    Service{Address: "localhost:23152"},
		Worker:   Worker{Service: Service{Address: "localhost:23153"}, SandboxDriver: defaultSandboxDriver()},
	}
}

// Parse loads YAML bytes into a Configuration and applies VORPAL_-prefixed
// environment overrides, mirroring configuration.Parser.Parse's
// "v.Abc.Xyz may be replaced by VORPAL_ABC_XYZ" scheme.
func Parse(data []byte) (*Configuration, error) {
	c := &Configuration{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Version != CurrentVersion {
		return nil, fmt.Errorf("config: unsupported version %q", c.Version)
	}
	if err := overwriteFromEnv(reflect.ValueOf(c).Elem(), "VORPAL"); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads path and parses it.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

func overwriteFromEnv(v reflect.Value, prefix string) error {
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		if !field.IsExported() {
			continue
		}
		fieldPrefix := strings.ToUpper(prefix + "_" + field.Name)
		if field.Anonymous {
			if err := overwriteFromEnv(v.Field(i), prefix); err != nil {
				return err
			}
			continue
		}
		if raw, ok := os.LookupEnv(fieldPrefix); ok {
			dst := reflect.New(field.Type)
			if err := yaml.Unmarshal([]byte(raw), dst.Interface()); err != nil {
				return fmt.Errorf("config: env %s: %w", fieldPrefix, err)
			}
			v.Field(i).Set(dst.Elem())
			continue
		}
		if v.Field(i).Kind() == reflect.Struct {
			if err := overwriteFromEnv(v.Field(i), fieldPrefix); err != nil {
				return err
			}
		}
	}
	return nil
}
