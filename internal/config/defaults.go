// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package config

import "github.com/samber/oops"

// defaultsProvider is a koanf.Provider serving Default() as a nested map.
// Every key is present, even zero values, so env and flag overrides have a
// key to land on.
type defaultsProvider struct{}

// ReadBytes is not supported; defaults are only available as a map.
func (defaultsProvider) ReadBytes() ([]byte, error) {
	return nil, oops.Code("CONFIG_INVALID").Errorf("defaults provider does not support ReadBytes")
}

// Read returns the default configuration keyed like the YAML file.
func (defaultsProvider) Read() (map[string]any, error) {
	d := Default()
	pg, mg := d.Datastore.Postgres, d.Datastore.Mongo
	return map[string]any{
		"datastore": map[string]any{
			"type": d.Datastore.Type,
			"memory": map[string]any{
				"init_test_data": d.Datastore.Memory.InitTestData,
			},
			"postgres": map[string]any{
				"url":                     pg.URL,
				"host":                    pg.Host,
				"port":                    pg.Port,
				"dbname":                  pg.DBName,
				"username":                pg.Username,
				"password":                pg.Password,
				"sslmode":                 pg.SSLMode,
				"max_conns":               pg.MaxConns,
				"auto_migrate":            pg.AutoMigrate,
				"connect_retries":         pg.ConnectRetries,
				"connect_timeout_seconds": pg.ConnectTimeoutSeconds,
			},
			"mongo": map[string]any{
				"uri":                     mg.URI,
				"database":                mg.Database,
				"collection":              mg.Collection,
				"connect_retries":         mg.ConnectRetries,
				"connect_timeout_seconds": mg.ConnectTimeoutSeconds,
			},
		},
		"hasher": map[string]any{"algorithm": d.Hasher.Algorithm},
		"reset":  map[string]any{"token_ttl_seconds": d.Reset.TokenTTLSeconds},
		"log": map[string]any{
			"level":  d.Log.Level,
			"format": d.Log.Format,
		},
		"server": map[string]any{"addr": d.Server.Addr},
	}, nil
}
