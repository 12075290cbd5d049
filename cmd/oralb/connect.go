package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/oralb/internal/device"
	goble "github.com/srg/oralb/internal/device/go-ble"
	"github.com/srg/oralb/pkg/config"
	"github.com/srg/oralb/pkg/oralb"
)

// Link is a connected toothbrush transport.
type Link interface {
	device.Peripheral
	Disconnect() error
	ConnectionContext() context.Context
}

// connector opens a link to address. Tests replace it with a fake peripheral.
var connector = func(ctx context.Context, address string, cfg *config.Config, logger *logrus.Logger) (Link, error) {
	conn := goble.NewConnection(logger)
	opts := &device.ConnectOptions{
		Address:        address,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
	}
	if err := conn.Connect(ctx, address, opts); err != nil {
		return nil, err
	}
	return conn, nil
}

// defaultConfigPath is consulted when --config is not given.
var defaultConfigPath = config.DefaultConfigPath

// loadSettings resolves the config file and applies explicitly set flags on top of it.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		if p := defaultConfigPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	} else if verbose {
		cfg.LogLevel = "debug"
	}
	if flags.Changed("timeout") {
		cfg.ConnectTimeout = connectTimeout
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout = readTimeout
	}
	if flags.Changed("output") {
		cfg.OutputFormat = outputFormat
	}
	return cfg, cfg.Validate()
}

// commandEnv is what a toothbrush command runs against.
type commandEnv struct {
	cmd     *cobra.Command
	address string
	session *oralb.Session
	link    Link
	out     *renderer
	logger  *logrus.Logger
}

// stderr is where prompts and progress go.
func (e *commandEnv) stderr() io.Writer {
	return e.cmd.ErrOrStderr()
}

// runWithSession connects to the toothbrush named by args (or the config), opens a session,
// runs fn and tears everything down again.
func runWithSession(cmd *cobra.Command, args []string, fn func(ctx context.Context, env *commandEnv) error) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	address := cfg.Address
	if len(args) > 0 {
		address = args[0]
	}
	if address == "" {
		return fmt.Errorf("device address required: pass it as an argument or set 'address' in the config file")
	}

	logger := configureLogger(cmd, cfg)

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	progress := NewProgressPrinter(cmd.ErrOrStderr(), fmt.Sprintf("Connecting to %s", address), "Connecting")
	progress.Start(ctx)
	link, err := connector(ctx, address, cfg, logger)
	progress.Stop()
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer func() {
		if err := link.Disconnect(); err != nil {
			logger.WithError(err).Warn("Disconnect failed")
		}
	}()

	session, err := oralb.NewSession(link, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.WithError(err).Warn("Failed to release notifications")
		}
	}()

	env := &commandEnv{
		cmd:     cmd,
		address: address,
		session: session,
		link:    link,
		out:     newRenderer(cmd.OutOrStdout(), cfg.OutputFormat),
		logger:  logger,
	}

	err = fn(ctx, env)
	if err != nil && !errors.Is(err, ErrConnectionLost) && errors.Is(err, device.ErrNotConnected) {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return err
}
