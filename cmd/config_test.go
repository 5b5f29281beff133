package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/reviewbot/internal/output"
)

// testEnv sets up isolated config dir, viper, and output for testing.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	viper.Reset()
	setDefaults(dir)
	viper.Set("user.id", "tester")

	if dataStore != nil {
		_ = dataStore.Close()
	}
	dataStore = nil
	t.Cleanup(func() {
		if dataStore != nil {
			_ = dataStore.Close()
			dataStore = nil
		}
	})

	ui = output.New()

	return dir
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.NoError(t, err, "config file should exist")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reviewbot configuration")
	assert.Contains(t, string(data), "deadline_days: 3")
	assert.Contains(t, string(data), `driver: "sqlite"`)
}

func TestConfigInit_FileParsesBack(t *testing.T) {
	dir := testEnv(t)
	require.NoError(t, configInitRun())

	values := readConfigFileValues(filepath.Join(dir, "config.yaml"))
	assert.True(t, values["db.driver"])
	assert.True(t, values["review.workday_end_hour"])
	assert.True(t, values["user.id"])
	assert.False(t, values["state_dir"], "state_dir is commented out")
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = false
	err := configInitRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrite(t *testing.T) {
	dir := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	t.Cleanup(func() { configForce = false })
	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reviewbot configuration")
}

func TestConfigShow_NoFile(t *testing.T) {
	testEnv(t)

	err := configShowRun()
	assert.NoError(t, err)
}

func TestConfigShow_WithFile(t *testing.T) {
	testEnv(t)

	require.NoError(t, configInitRun())

	err := configShowRun()
	assert.NoError(t, err)
}

func TestConfigEdit_NoEditor(t *testing.T) {
	testEnv(t)

	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "$EDITOR is not set")
}

func TestConfigEdit_NoConfigFile(t *testing.T) {
	testEnv(t)

	t.Setenv("EDITOR", "echo") // harmless command

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestConfigKeys_EnvVars(t *testing.T) {
	want := map[string]string{
		"state_dir":               "REVIEWBOT_STATE_DIR",
		"db.path":                 "REVIEWBOT_DB_PATH",
		"review.workday_end_hour": "REVIEWBOT_REVIEW_WORKDAY_END_HOUR",
		"notify.webhook_url":      "REVIEWBOT_NOTIFY_WEBHOOK_URL",
	}
	got := make(map[string]string)
	for _, k := range configKeys {
		got[k.Key] = k.EnvVar
	}
	for key, env := range want {
		assert.Equal(t, env, got[key], key)
	}
}

func TestDetectSource(t *testing.T) {
	fileValues := map[string]bool{"key_a": true}

	t.Setenv("REVIEWBOT_TEST_KEY", "val")
	assert.Contains(t, detectSource("test_key", "REVIEWBOT_TEST_KEY", fileValues), "env")

	assert.Contains(t, detectSource("key_a", "REVIEWBOT_KEY_A_NONEXISTENT", fileValues), "file")

	assert.Contains(t, detectSource("key_b", "REVIEWBOT_KEY_B_NONEXISTENT", fileValues), "default")
}

func TestFlattenKeys(t *testing.T) {
	input := map[string]any{
		"top": "val",
		"nested": map[string]any{
			"a": "1",
			"b": "2",
		},
	}

	result := make(map[string]bool)
	flattenKeys("", input, result)

	assert.True(t, result["top"])
	assert.True(t, result["nested.a"])
	assert.True(t, result["nested.b"])
	assert.False(t, result["nested"])
}

func TestConfigInit_DryRun(t *testing.T) {
	dir := testEnv(t)
	dryRun = true
	ui.DryRun = true
	defer func() { dryRun = false }()

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.True(t, os.IsNotExist(err), "config file should not exist in dry-run mode")
}
