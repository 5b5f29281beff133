package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "reviewbot"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage reviewbot configuration.

Running bare 'reviewbot config' is the same as 'reviewbot config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# reviewbot configuration
# See: reviewbot config show (for effective values and sources)

# State/data directory (default: ~/.config/reviewbot)
# state_dir: {{ .StateDir }}

db:
  # sqlite or postgres
  driver: "{{ .DBDriver }}"
  # SQLite database file
  path: "{{ .DBPath }}"
  # Postgres connection string, used when driver is postgres
  dsn: "{{ .DBDSN }}"
  # Upper bound for a single database round trip
  timeout: {{ .DBTimeout }}

log:
  # trace, debug, info, warn, error
  level: "{{ .LogLevel }}"
  # console, json or ecs
  format: "{{ .LogFormat }}"

review:
  # IANA zone used for default and date-only deadlines
  timezone: "{{ .Timezone }}"
  # Default deadline is this many days out...
  deadline_days: {{ .DeadlineDays }}
  # ...at this hour
  workday_end_hour: {{ .WorkdayEndHour }}

notify:
  # Every notification is also POSTed here as JSON when set
  webhook_url: "{{ .WebhookURL }}"
  timeout: {{ .NotifyTimeout }}

serve:
  port: {{ .ServePort }}

# Identity used by CLI commands (override with --as)
user:
  id: "{{ .UserID }}"
  name: "{{ .UserName }}"
`

type configTemplateData struct {
	StateDir       string
	DBDriver       string
	DBPath         string
	DBDSN          string
	DBTimeout      string
	LogLevel       string
	LogFormat      string
	Timezone       string
	DeadlineDays   int
	WorkdayEndHour int
	WebhookURL     string
	NotifyTimeout  string
	ServePort      int
	UserID         string
	UserName       string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	data := configTemplateData{
		StateDir:       viper.GetString("state_dir"),
		DBDriver:       viper.GetString("db.driver"),
		DBPath:         viper.GetString("db.path"),
		DBDSN:          viper.GetString("db.dsn"),
		DBTimeout:      viper.GetDuration("db.timeout").String(),
		LogLevel:       viper.GetString("log.level"),
		LogFormat:      viper.GetString("log.format"),
		Timezone:       viper.GetString("review.timezone"),
		DeadlineDays:   viper.GetInt("review.deadline_days"),
		WorkdayEndHour: viper.GetInt("review.workday_end_hour"),
		WebhookURL:     viper.GetString("notify.webhook_url"),
		NotifyTimeout:  viper.GetDuration("notify.timeout").String(),
		ServePort:      viper.GetInt("serve.port"),
		UserID:         viper.GetString("user.id"),
		UserName:       viper.GetString("user.name"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = buildConfigKeys(
	"state_dir",
	"db.driver", "db.path", "db.dsn", "db.timeout",
	"log.level", "log.format",
	"review.timezone", "review.deadline_days", "review.workday_end_hour",
	"notify.webhook_url", "notify.timeout",
	"serve.port",
	"user.id", "user.name",
)

// buildConfigKeys derives each key's env var the same way viper does.
func buildConfigKeys(keys ...string) []configKeyInfo {
	out := make([]configKeyInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, configKeyInfo{Key: k, EnvVar: envVarFor(k)})
	}
	return out
}

func envVarFor(key string) string {
	return "REVIEWBOT_" + envKeyReplacer.Replace(strings.ToUpper(key))
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Key == "db.dsn" && viper.GetString(k.Key) != "" {
			val = "(set)"
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-24s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'reviewbot config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
