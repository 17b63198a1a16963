// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

// Package config loads authlib configuration from built-in defaults, an
// optional YAML file, AUTHLIB_* environment variables, and command-line
// flags, in increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment overrides. AUTHLIB_DATASTORE_TYPE
// sets datastore.type.
const EnvPrefix = "AUTHLIB_"

// Datastore types understood by the store factory.
const (
	DatastoreMemory   = "memory"
	DatastorePostgres = "postgres"
	DatastoreDatabase = "database"
	DatastoreMongo    = "mongo"
)

// Config is the root configuration object.
type Config struct {
	Datastore DatastoreConfig `koanf:"datastore" json:"datastore" yaml:"datastore"`
	Hasher    HasherConfig    `koanf:"hasher" json:"hasher,omitempty" yaml:"hasher,omitempty"`
	Reset     ResetConfig     `koanf:"reset" json:"reset,omitempty" yaml:"reset,omitempty"`
	Log       LogConfig       `koanf:"log" json:"log,omitempty" yaml:"log,omitempty"`
	Server    ServerConfig    `koanf:"server" json:"server,omitempty" yaml:"server,omitempty"`
}

// DatastoreConfig selects and configures the credential store.
type DatastoreConfig struct {
	Type     string         `koanf:"type" json:"type" yaml:"type" validate:"required,oneof=memory postgres database mongo" jsonschema:"enum=memory,enum=postgres,enum=database,enum=mongo,default=memory,description=Credential store implementation"`
	Memory   MemoryConfig   `koanf:"memory" json:"memory,omitempty" yaml:"memory,omitempty"`
	Postgres PostgresConfig `koanf:"postgres" json:"postgres,omitempty" yaml:"postgres,omitempty"`
	Mongo    MongoConfig    `koanf:"mongo" json:"mongo,omitempty" yaml:"mongo,omitempty"`
}

// MemoryConfig configures the in-process store.
type MemoryConfig struct {
	InitTestData bool `koanf:"init_test_data" json:"init_test_data,omitempty" yaml:"init_test_data,omitempty" jsonschema:"description=Seed user testuser with password 'password'"`
}

// PostgresConfig configures the PostgreSQL store. URL wins over the
// discrete connection fields when set.
type PostgresConfig struct {
	URL                   string `koanf:"url" json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`
	Host                  string `koanf:"host" json:"host,omitempty" yaml:"host,omitempty" validate:"required_without=URL"`
	Port                  int    `koanf:"port" json:"port,omitempty" yaml:"port,omitempty" validate:"min=1,max=65535"`
	DBName                string `koanf:"dbname" json:"dbname,omitempty" yaml:"dbname,omitempty" validate:"required_without=URL"`
	Username              string `koanf:"username" json:"username,omitempty" yaml:"username,omitempty"`
	Password              string `koanf:"password" json:"password,omitempty" yaml:"password,omitempty"`
	SSLMode               string `koanf:"sslmode" json:"sslmode,omitempty" yaml:"sslmode,omitempty" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns              int    `koanf:"max_conns" json:"max_conns,omitempty" yaml:"max_conns,omitempty" validate:"min=0"`
	AutoMigrate           bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty" yaml:"auto_migrate,omitempty" jsonschema:"default=true,description=Apply schema migrations when the store is created"`
	ConnectRetries        int    `koanf:"connect_retries" json:"connect_retries,omitempty" yaml:"connect_retries,omitempty" validate:"min=0"`
	ConnectTimeoutSeconds int    `koanf:"connect_timeout_seconds" json:"connect_timeout_seconds,omitempty" yaml:"connect_timeout_seconds,omitempty" validate:"min=0"`
}

// MongoConfig configures the MongoDB store.
type MongoConfig struct {
	URI                   string `koanf:"uri" json:"uri,omitempty" yaml:"uri,omitempty" validate:"required"`
	Database              string `koanf:"database" json:"database,omitempty" yaml:"database,omitempty" validate:"required"`
	Collection            string `koanf:"collection" json:"collection,omitempty" yaml:"collection,omitempty" validate:"required"`
	ConnectRetries        int    `koanf:"connect_retries" json:"connect_retries,omitempty" yaml:"connect_retries,omitempty" validate:"min=0"`
	ConnectTimeoutSeconds int    `koanf:"connect_timeout_seconds" json:"connect_timeout_seconds,omitempty" yaml:"connect_timeout_seconds,omitempty" validate:"min=0"`
}

// HasherConfig selects the password hasher.
type HasherConfig struct {
	Algorithm string `koanf:"algorithm" json:"algorithm,omitempty" yaml:"algorithm,omitempty" validate:"oneof=sha256 argon2id" jsonschema:"enum=sha256,enum=argon2id,default=sha256"`
}

// ResetConfig tunes password reset.
type ResetConfig struct {
	TokenTTLSeconds int `koanf:"token_ttl_seconds" json:"token_ttl_seconds,omitempty" yaml:"token_ttl_seconds,omitempty" validate:"min=1" jsonschema:"minimum=1,default=86400"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" json:"level,omitempty" yaml:"level,omitempty" validate:"oneof=debug info warn warning error" jsonschema:"enum=debug,enum=info,enum=warn,enum=warning,enum=error,default=info"`
	Format string `koanf:"format" json:"format,omitempty" yaml:"format,omitempty" validate:"oneof=json text" jsonschema:"enum=json,enum=text,default=json"`
}

// ServerConfig configures authlib serve.
type ServerConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr,omitempty" validate:"required,tcp_addr"`
}

// TokenTTL returns the reset token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Reset.TokenTTLSeconds) * time.Second
}

// PostgresConnectTimeout returns the per-attempt dial timeout.
func (c *Config) PostgresConnectTimeout() time.Duration {
	return time.Duration(c.Datastore.Postgres.ConnectTimeoutSeconds) * time.Second
}

// MongoConnectTimeout returns the server selection timeout.
func (c *Config) MongoConnectTimeout() time.Duration {
	return time.Duration(c.Datastore.Mongo.ConnectTimeoutSeconds) * time.Second
}

// Default returns the built-in configuration: an empty in-memory store, and
// a postgres store that migrates its schema on creation when selected.
func Default() *Config {
	return &Config{
		Datastore: DatastoreConfig{
			Type: DatastoreMemory,
			Postgres: PostgresConfig{
				Host:                  "localhost",
				Port:                  5432,
				DBName:                "authlib",
				Username:              "authlib",
				SSLMode:               "disable",
				MaxConns:              10,
				AutoMigrate:           true,
				ConnectRetries:        5,
				ConnectTimeoutSeconds: 5,
			},
			Mongo: MongoConfig{
				URI:                   "mongodb://localhost:27017",
				Database:              "authlib",
				Collection:            "credentials",
				ConnectRetries:        5,
				ConnectTimeoutSeconds: 5,
			},
		},
		Hasher: HasherConfig{Algorithm: "sha256"},
		Reset:  ResetConfig{TokenTTLSeconds: 86400},
		Log:    LogConfig{Level: "info", Format: "json"},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// LoadOptions controls which layers Load reads.
type LoadOptions struct {
	// Path of a YAML config file. Empty skips the file layer.
	Path string
	// Flags are applied last. Only flags named in FlagKeys and changed by
	// the user override lower layers.
	Flags *pflag.FlagSet
	// FlagKeys maps flag names to config keys, e.g. "datastore-type" to
	// "datastore.type".
	FlagKeys map[string]string
	// Environ returns the environment; defaults to os.Environ.
	Environ func() []string
}

// Load assembles and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaultsProvider{}, nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("layer", "defaults").Wrap(err)
	}
	envKeys := envKeyIndex(k.Keys())

	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, oops.Code("CONFIG_MISSING").With("path", opts.Path).Wrap(err)
		}
		if err := ValidateSchema(data); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", opts.Path).Wrap(err)
		}
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", opts.Path).Wrap(err)
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(name, value string) (string, any) {
			return envKeys[strings.TrimPrefix(name, EnvPrefix)], value
		},
		EnvironFunc: environ,
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("layer", "environment").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := opts.FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("layer", "flags").Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints. Only the selected store's section is
// checked, so an unused postgres block may stay incomplete.
func (c *Config) Validate() error {
	var err error
	switch c.Datastore.Type {
	case DatastorePostgres, DatastoreDatabase:
		err = validate.StructExcept(c, "Datastore.Mongo")
	case DatastoreMongo:
		err = validate.StructExcept(c, "Datastore.Postgres")
	default:
		err = validate.StructExcept(c, "Datastore.Postgres", "Datastore.Mongo")
	}
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "validate config").Wrap(err)
	}
	return nil
}

// envKeyIndex maps DATASTORE_POSTGRES_MAX_CONNS style names to config keys.
// Unknown names map to "" and are dropped by the env provider.
func envKeyIndex(keys []string) map[string]string {
	idx := make(map[string]string, len(keys))
	for _, key := range keys {
		idx[strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}
	return idx
}
