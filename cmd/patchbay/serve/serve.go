// Package servecmder provides the serve command for running the relay server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/patchbay/pkg/config"
	"github.com/papercomputeco/patchbay/pkg/credentials"
	"github.com/papercomputeco/patchbay/pkg/logger"
	"github.com/papercomputeco/patchbay/pkg/oauth"
	"github.com/papercomputeco/patchbay/proxy"
	"github.com/papercomputeco/patchbay/proxy/route"
)

type ServeCommander struct {
	listen         string
	workers        uint
	claudeUpstream string
	routes         []config.RouteConfig
	debug          bool
	configDir      string
	logger         *zap.Logger
}

const serveLongDesc string = `Run the patchbay relay server.

The server fronts the managed Claude upstream behind stored OAuth
credentials and relays named routes to their configured providers.
Complete the login flow first with "patchbay auth login", or let
clients drive it over HTTP via GET /claude-code/authorize.

Values resolve in precedence order: CLI flags override PATCHBAY_*
environment variables, which override config.toml, which overrides
built-in defaults. Routes are config-file only; edit the
[[proxy.routes]] tables in config.toml.

Examples:
  patchbay serve
  patchbay serve --listen :9090
  PATCHBAY_CLAUDE_UPSTREAM=http://localhost:4000 patchbay serve`

const serveShortDesc string = "Run the patchbay relay server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			// Connect the registered flags into viper's precedence chain
			// so flag > env > file > default holds for every value below.
			config.BindRegisteredFlags(v, cmd, config.ServeFlags, []string{
				config.FlagListen,
				config.FlagWorkers,
				config.FlagClaudeUpstream,
			})

			cmder.listen = v.GetString("proxy.listen")
			cmder.workers = v.GetUint("proxy.workers")
			cmder.claudeUpstream = v.GetString("claude.upstream")

			cmder.routes, err = config.Routes(v)
			if err != nil {
				return fmt.Errorf("loading routes: %w", err)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagListen, &cmder.listen)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagClaudeUpstream, &cmder.claudeUpstream)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	store, err := credentials.NewStore(c.configDir)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}

	manager := oauth.NewManager(oauth.NewClient(oauth.DefaultConfig()), store, c.logger)

	routes := make([]route.Entry, 0, len(c.routes))
	for _, rc := range c.routes {
		routes = append(routes, route.Entry{
			Name:      rc.Name,
			Target:    rc.Target,
			HostMatch: rc.Host,
		})
	}

	proxyConfig := proxy.Config{
		ListenAddr:     c.listen,
		Routes:         routes,
		ClaudeUpstream: c.claudeUpstream,
		Workers:        c.workers,
	}
	p, err := proxy.New(proxyConfig, manager, c.logger)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick up logins and logouts performed beside the running server.
	go func() {
		if err := store.Watch(ctx, c.logger); err != nil {
			c.logger.Warn("credential watcher stopped", zap.Error(err))
		}
	}()

	// Channel to capture errors from goroutines
	errChan := make(chan error, 1)

	go func() {
		if err := p.Run(); err != nil {
			errChan <- fmt.Errorf("proxy error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return nil
	}
}
