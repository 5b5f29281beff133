package cmd

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewbot/internal/deadline"
	"github.com/joescharf/reviewbot/internal/logging"
	"github.com/joescharf/reviewbot/internal/models"
	"github.com/joescharf/reviewbot/internal/notify"
	"github.com/joescharf/reviewbot/internal/output"
	"github.com/joescharf/reviewbot/internal/review"
	"github.com/joescharf/reviewbot/internal/store"
	"github.com/joescharf/reviewbot/internal/task"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

// envKeyReplacer maps db.path to REVIEWBOT_DB_PATH.
var envKeyReplacer = strings.NewReplacer(".", "_")

var rootCmd = &cobra.Command{
	Use:   "reviewbot",
	Short: "Track content reviews, reviewer feedback and client tasks",
	Long: `reviewbot records review requests, collects reviewer verdicts and
derives each review's status from them. Origin channels are notified when a
review is approved; requesters hear about feedback.

It runs as a CLI, an HTTP API (reviewbot serve) or an MCP tool server
(reviewbot mcp).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/reviewbot/config.yaml)")
	rootCmd.PersistentFlags().String("as", "", "Act as this user id (default: user.id from config)")
	_ = viper.BindPFlag("user.id", rootCmd.PersistentFlags().Lookup("as"))
}

func initConfig() {
	// .env in the working directory is optional.
	_ = godotenv.Load()

	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REVIEWBOT")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	configDir, _ := configDirFunc()
	setDefaults(configDir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default value.
func setDefaults(stateDir string) {
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.path", filepath.Join(stateDir, "reviewbot.db"))
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.timeout", 5*time.Second)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("review.timezone", "Local")
	viper.SetDefault("review.deadline_days", deadline.Standard.Days)
	viper.SetDefault("review.workday_end_hour", deadline.Standard.Hour)
	viper.SetDefault("notify.webhook_url", "")
	viper.SetDefault("notify.timeout", notify.DefaultTimeout)
	viper.SetDefault("serve.port", 8080)
	viper.SetDefault("user.id", currentUsername())
	viper.SetDefault("user.name", "")
}

func currentUsername() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	level := viper.GetString("log.level")
	if verbose {
		level = "debug"
	}
	if err := logging.Setup(logging.Options{
		Level:  level,
		Format: viper.GetString("log.format"),
		App:    "reviewbot",
	}); err != nil {
		ui.Warning("Logging config ignored: %v", err)
	}

	// Initialize store lazily, only when commands actually need it.
	// This allows config/version commands to run without a db.
}

// getStore returns the shared store, initializing it on first call.
// Every call through it is bounded by db.timeout.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	driver := viper.GetString("db.driver")
	dsn := viper.GetString("db.path")
	if driver == string(store.DialectPostgres) {
		dsn = viper.GetString("db.dsn")
	}
	s, err := store.Open(store.Dialect(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := dbContext()
	defer cancel()
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = store.WithTimeout(s, viper.GetDuration("db.timeout"))
	return dataStore, nil
}

// dbContext bounds a single store round trip by db.timeout.
func dbContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), viper.GetDuration("db.timeout"))
}

// deadlinePolicy builds the deadline rules from review.* config.
func deadlinePolicy() (deadline.Policy, error) {
	loc, err := time.LoadLocation(viper.GetString("review.timezone"))
	if err != nil {
		return deadline.Policy{}, fmt.Errorf("review.timezone: %w", err)
	}
	return deadline.Policy{
		Days:     viper.GetInt("review.deadline_days"),
		Hour:     viper.GetInt("review.workday_end_hour"),
		Location: loc,
	}, nil
}

// newNotifier always logs; a configured webhook also receives every notification.
func newNotifier() notify.Notifier {
	logNotifier := notify.NewLog(log.Logger)
	url := viper.GetString("notify.webhook_url")
	if url == "" {
		return logNotifier
	}
	return notify.Multi{logNotifier, notify.NewWebhook(url, viper.GetDuration("notify.timeout"))}
}

// getServices wires the review and task services over the shared store.
func getServices() (*review.Service, *task.Service, error) {
	s, err := getStore()
	if err != nil {
		return nil, nil, err
	}
	policy, err := deadlinePolicy()
	if err != nil {
		return nil, nil, err
	}
	reviews := review.NewService(s, newNotifier(),
		review.WithDeadlinePolicy(policy),
		review.WithLogger(log.Logger),
	)
	return reviews, task.NewService(s, policy, nil), nil
}

// currentActor is the identity CLI commands act as.
func currentActor() (models.Party, error) {
	id := viper.GetString("user.id")
	if id == "" {
		return models.Party{}, fmt.Errorf("no user identity: pass --as or set user.id")
	}
	return models.Party{ID: id, Name: viper.GetString("user.name")}, nil
}
