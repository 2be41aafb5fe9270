package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "cor_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// stubConfigPaths points the config loader at a temp dir for the test.
func stubConfigPaths(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	oldDir, oldPath := getConfigDirFunc, getConfigPathFunc
	getConfigDirFunc = func() (string, error) { return dir, nil }
	getConfigPathFunc = func() (string, error) { return path, nil }
	t.Cleanup(func() {
		getConfigDirFunc = oldDir
		getConfigPathFunc = oldPath
	})
	return path
}

func writeConfigFile(t *testing.T, path string, cfg GlobalConfig) {
	t.Helper()
	data, err := json.MarshalIndent(cfg, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "corpora"))
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "config.json", filepath.Base(path))
}

func TestLoadGlobalConfig(t *testing.T) {
	t.Run("missing file yields nil config", func(t *testing.T) {
		stubConfigPaths(t)

		cfg, err := LoadGlobalConfig()
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("valid file", func(t *testing.T) {
		path := stubConfigPaths(t)
		writeConfigFile(t, path, GlobalConfig{APIKey: testKey, APIURL: "http://localhost:8080"})

		cfg, err := LoadGlobalConfig()
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, testKey, cfg.APIKey)
		assert.Equal(t, "http://localhost:8080", cfg.APIURL)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := stubConfigPaths(t)
		require.NoError(t, os.WriteFile(path, []byte("{invalid json}"), 0600))

		cfg, err := LoadGlobalConfig()
		assert.Nil(t, cfg)
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestSaveGlobalConfig(t *testing.T) {
	t.Run("creates directory and file with 0600", func(t *testing.T) {
		path := stubConfigPaths(t)

		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: testKey, APIURL: "http://localhost:8080"}))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("written file parses back", func(t *testing.T) {
		path := stubConfigPaths(t)

		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: testKey, APIURL: "http://localhost:8080"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var loaded GlobalConfig
		require.NoError(t, json.Unmarshal(data, &loaded))
		assert.Equal(t, testKey, loaded.APIKey)
	})

	t.Run("nil config rejected", func(t *testing.T) {
		assert.ErrorContains(t, SaveGlobalConfig(nil), "config cannot be nil")
	})
}

func TestDeleteGlobalConfig(t *testing.T) {
	t.Run("removes existing file", func(t *testing.T) {
		path := stubConfigPaths(t)
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

		require.NoError(t, DeleteGlobalConfig())
		assert.NoFileExists(t, path)
	})

	t.Run("missing file is a no-op", func(t *testing.T) {
		stubConfigPaths(t)
		require.NoError(t, DeleteGlobalConfig())
	})
}

func TestIsValidAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"lowercase hex", testKey, true},
		{"uppercase hex", "cor_" + strings.Repeat("ABCDEF01", 8), true},
		{"mixed case hex", "cor_" + strings.Repeat("AbCdEf01", 8), true},
		{"missing prefix", strings.Repeat("ab", 32), false},
		{"wrong prefix", "abc_" + strings.Repeat("ab", 32), false},
		{"too short", "cor_0123456789abcdef", false},
		{"too long", testKey + "00", false},
		{"non-hex char", "cor_" + strings.Repeat("a", 63) + "g", false},
		{"trailing space", "cor_" + strings.Repeat("a", 63) + " ", false},
		{"empty", "", false},
		{"only prefix", "cor_", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAPIKey(tt.key))
		})
	}
}

func TestGetCredentialSource(t *testing.T) {
	const envKey = "cor_" + "e0v0" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789ab"
	const flagKey = "cor_" + "f1a6" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789ab"
	const fileKey = "cor_" + "c0f6" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789ab"

	clearEnv := func(t *testing.T) {
		t.Setenv("CORPORA_API_KEY", "")
		t.Setenv("CORPORA_API_URL", "")
	}

	t.Run("flags win over everything", func(t *testing.T) {
		t.Setenv("CORPORA_API_KEY", envKey)
		t.Setenv("CORPORA_API_URL", "http://env:8080")

		source, key, url := GetCredentialSource(flagKey, "http://flag:8080")

		assert.Equal(t, SourceFlag, source)
		assert.Equal(t, flagKey, key)
		assert.Equal(t, "http://flag:8080", url)
	})

	t.Run("env wins over config file", func(t *testing.T) {
		t.Setenv("CORPORA_API_KEY", envKey)
		t.Setenv("CORPORA_API_URL", "http://env:8080")
		path := stubConfigPaths(t)
		writeConfigFile(t, path, GlobalConfig{APIKey: fileKey, APIURL: "http://file:8080"})

		source, key, url := GetCredentialSource("", "")

		assert.Equal(t, SourceEnvFile, source)
		assert.Equal(t, envKey, key)
		assert.Equal(t, "http://env:8080", url)
	})

	t.Run("config file is the fallback", func(t *testing.T) {
		clearEnv(t)
		path := stubConfigPaths(t)
		writeConfigFile(t, path, GlobalConfig{APIKey: fileKey, APIURL: "http://file:8080"})

		source, key, url := GetCredentialSource("", "")

		assert.Equal(t, SourceGlobalConfig, source)
		assert.Equal(t, fileKey, key)
		assert.Equal(t, "http://file:8080", url)
	})

	t.Run("nothing configured", func(t *testing.T) {
		clearEnv(t)
		stubConfigPaths(t)

		source, key, url := GetCredentialSource("", "")

		assert.Equal(t, SourceNone, source)
		assert.Empty(t, key)
		assert.Empty(t, url)
	})

	t.Run("key without url is incomplete", func(t *testing.T) {
		t.Setenv("CORPORA_API_KEY", envKey)
		t.Setenv("CORPORA_API_URL", "")
		stubConfigPaths(t)

		source, key, url := GetCredentialSource("", "")

		assert.Equal(t, SourceNone, source)
		assert.Empty(t, key)
		assert.Empty(t, url)
	})
}

func TestConfigRoundTrip(t *testing.T) {
	stubConfigPaths(t)

	saved := &GlobalConfig{APIKey: testKey, APIURL: "http://localhost:8080"}
	require.NoError(t, SaveGlobalConfig(saved))

	loaded, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved, loaded)
}
