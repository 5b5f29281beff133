package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewbot/internal/api"
	"github.com/joescharf/reviewbot/internal/daemon"
	"github.com/joescharf/reviewbot/internal/output"
)

var serveDaemon bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the review and task API, /healthz and /metrics.
By default it listens on port 8080 in the foreground. Use --port to change it
and --daemon to run it in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveDaemon {
			return serveDaemonRun()
		}
		return serveStartRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().BoolVarP(&serveDaemon, "daemon", "d", false, "run in the background")
	_ = viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "reviewbot-serve.pid"))
}

func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "reviewbot-serve.log")
}

func serveAddr() string {
	return fmt.Sprintf(":%d", viper.GetInt("serve.port"))
}

// serveStartRun serves in the foreground until SIGINT/SIGTERM.
func serveStartRun() error {
	pf := pidFile()
	addr := serveAddr()
	if err := os.MkdirAll(filepath.Dir(pf.Path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := pf.Acquire(addr); err != nil {
		return err
	}
	defer func() { _ = pf.Remove() }()

	reviews, tasks, err := getServices()
	if err != nil {
		return err
	}
	s, _ := getStore()
	defer func() { _ = s.Close() }()

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(s, reviews, tasks).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("version", buildVersion).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()
	ui.Success("Serving API at http://localhost%s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// serveDaemonRun re-executes the binary in the background with output sent to the serve log.
func serveDaemonRun() error {
	pf := pidFile()
	if rec, running := pf.IsRunning(); running {
		return fmt.Errorf("%w (PID %d, %s)", daemon.ErrAlreadyRunning, rec.PID, rec.Addr)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	if dryRun {
		ui.DryRunMsg("Would start %s serve --port %d in the background", exe, viper.GetInt("serve.port"))
		return nil
	}

	if err := os.MkdirAll(viper.GetString("state_dir"), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	logFile, err := os.OpenFile(serveLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open serve log: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	childArgs := []string{"serve", "--port", fmt.Sprint(viper.GetInt("serve.port"))}
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		childArgs = append(childArgs, "--config", cfgFile)
	}
	child := exec.Command(exe, childArgs...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	_ = child.Process.Release()

	ui.Success("Started server in background (PID %d) on %s", child.Process.Pid, serveAddr())
	ui.Info("Logs: %s", serveLogPath())
	return nil
}

func serveStatusRun() error {
	rec, running := pidFile().IsRunning()
	if !running {
		ui.Info("Server is %s", output.Yellow("not running"))
		return nil
	}
	ui.Success("Server running (PID %d) on %s since %s", rec.PID, rec.Addr, rec.Started.Local().Format(time.RFC3339))
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	rec, running := pf.IsRunning()
	if !running {
		_ = pf.Remove()
		return daemon.ErrNotRunning
	}
	if dryRun {
		ui.DryRunMsg("Would stop server (PID %d)", rec.PID)
		return nil
	}
	if err := pf.Stop(sigTERM(), sigKILL(), 5*time.Second); err != nil {
		return err
	}
	ui.Success("Stopped server (PID %d)", rec.PID)
	return nil
}
