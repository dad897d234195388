package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kochabx/authsession/app"
	"github.com/kochabx/authsession/internal/mockbackend"
	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/store/redis"
	khttp "github.com/kochabx/authsession/transport/http"
)

func mockCmd() *cli.Command {
	return &cli.Command{
		Name:  "mock",
		Usage: "Run the mock auth backend for local testing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: "127.0.0.1:8000",
			},
			&cli.DurationFlag{
				Name:  "access-ttl",
				Value: 5 * time.Minute,
			},
			&cli.DurationFlag{
				Name:  "refresh-ttl",
				Value: 24 * time.Hour,
			},
			&cli.StringFlag{
				Name:    "secret",
				Value:   "mock-secret",
				EnvVars: []string{"MOCKBACKEND_SECRET"},
			},
			&cli.StringSliceFlag{
				Name:  "redis",
				Usage: "keep the token blacklist in redis at these addresses",
			},
			&cli.IntSliceFlag{
				Name:  "fail-refresh",
				Usage: "answer the next refresh calls with these statuses",
			},
		},
		Action: func(c *cli.Context) error {
			logger := log.G()
			opts := []mockbackend.Option{
				mockbackend.WithSecret(c.String("secret")),
				mockbackend.WithTTL(c.Duration("access-ttl"), c.Duration("refresh-ttl")),
				mockbackend.WithLogger(logger),
			}

			a := app.New(app.WithContext(c.Context))
			if addrs := c.StringSlice("redis"); len(addrs) > 0 {
				client, err := redis.New(c.Context, &redis.Config{Addrs: addrs})
				if err != nil {
					return err
				}
				opts = append(opts, mockbackend.WithBlacklist(mockbackend.NewRedisBlacklist(client.UniversalClient(), "mockbackend:blacklist:")))
				if err := a.RegisterClose("redis", func(context.Context) error { return client.Close() }, 0); err != nil {
					return err
				}
			}

			b := mockbackend.New(opts...)
			if fails := c.IntSlice("fail-refresh"); len(fails) > 0 {
				b.FailRefresh(fails...)
			}

			srv := khttp.NewServer(c.String("addr"), b.Engine(), khttp.WithMeta(khttp.Meta{Name: "mockbackend"}))
			if err := a.AddServer(srv); err != nil {
				return err
			}
			return a.Start()
		},
	}
}

func init() {
	register(mockCmd)
}
