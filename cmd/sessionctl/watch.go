package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kochabx/authsession"
	"github.com/kochabx/authsession/app"
	"github.com/kochabx/authsession/config"
	"github.com/kochabx/authsession/transport"
	"github.com/kochabx/authsession/transport/websocket"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep the session alive, follow notifications and serve status until interrupted",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-keepalive",
				Usage: "do not refresh the token on a schedule",
			},
			&cli.StringFlag{
				Name:  "notifications",
				Usage: "notification websocket url, overrides notifications.url",
			},
			&cli.StringFlag{
				Name:  "admin",
				Usage: "serve /session, /metrics and /health on this address",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if u := c.String("notifications"); u != "" {
				cfg.Notifications.URL = u
			}
			if addr := c.String("admin"); addr != "" {
				cfg.Admin.Enabled = true
				cfg.Admin.Addr = addr
			}

			m, err := authsession.New(c.Context, cfg)
			if err != nil {
				return err
			}
			servers, err := watchServers(m, !c.Bool("no-keepalive"))
			if err != nil {
				_ = m.Close()
				return err
			}

			a := app.New(
				app.WithContext(c.Context),
				app.WithServers(servers...),
				app.WithClose("manager", func(context.Context) error { return m.Close() }, 5*time.Second),
			)
			watchConfig(c.String("config"), m)

			m.Logger().Info().
				Str("username", m.Session().Username).
				Bool("valid", m.Valid()).
				Int("servers", len(servers)).
				Msg("watching session")
			return a.Start()
		},
	}
}

func watchServers(m *authsession.Manager, keepalive bool) ([]transport.Server, error) {
	cfg := m.Config()
	logger := m.Logger()
	var servers []transport.Server

	if cfg.Keepalive.Enabled && keepalive {
		k, err := m.Keepalive()
		if err != nil {
			return nil, err
		}
		servers = append(servers, k)
	}

	if cfg.Notifications.URL != "" {
		ws, err := m.Notifications()
		if err != nil {
			return nil, err
		}
		ws.OnEvent(websocket.EventMessage, func(e websocket.Event) {
			logger.Info().Bytes("notification", e.Data).Msg("notification received")
		})
		ws.OnEvent(websocket.EventReconnecting, func(e websocket.Event) {
			logger.Warn().Int("attempt", e.Attempt).Dur("delay", e.Delay).Msg("notification socket reconnecting")
		})
		servers = append(servers, transport.NewLoop(ws.Run))
	}

	if cfg.Admin.Enabled {
		servers = append(servers, m.AdminServer())
	}
	return servers, nil
}

// watchConfig only warns: edits apply on the next run.
func watchConfig(file string, m *authsession.Manager) {
	loader := config.New(&authsession.Config{}, config.WithFile(file), config.WithOptional())
	loader.OnChange(func() {
		m.Logger().Warn().Msg("config file changed, restart watch to apply it")
	})
	if err := loader.Load(); err != nil {
		return
	}
	if err := loader.Watch(); err != nil {
		m.Logger().Debug().Err(err).Msg("config watch unavailable")
	}
}

func init() {
	register(watchCmd)
}
