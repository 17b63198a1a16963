// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AuthLib Contributors

package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, SchemaID, schema["$id"])
	assert.Equal(t, "AuthLib configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"datastore", "hasher", "reset", "log", "server"} {
		assert.Contains(t, props, key)
	}

	datastore := props["datastore"].(map[string]any)["properties"].(map[string]any)
	assert.ElementsMatch(t,
		[]any{"memory", "postgres", "database", "mongo"},
		datastore["type"].(map[string]any)["enum"])
}

func TestValidateSchema(t *testing.T) {
	valid := []string{
		"",
		"datastore:\n  type: memory\n  memory:\n    init_test_data: true\n",
		"datastore:\n  type: postgres\n  postgres:\n    host: db\n    port: 5433\n",
		"hasher:\n  algorithm: argon2id\nserver:\n  addr: ':9000'\n",
	}
	for _, doc := range valid {
		assert.NoError(t, ValidateSchema([]byte(doc)), doc)
	}

	invalid := []string{
		"datastores:\n  type: memory\n",
		"datastore:\n  postgres:\n    port: '5432'\n",
		"hasher:\n  algorithm: md5\n",
		"log: [debug]\n",
	}
	for _, doc := range invalid {
		assert.Error(t, ValidateSchema([]byte(doc)), doc)
	}
}
