package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/kochabx/authsession"
	"github.com/kochabx/authsession/config"
	"github.com/kochabx/authsession/errors"
	"github.com/kochabx/authsession/session"
)

// loadConfig reads the config file named by --config. A missing file is
// fine as long as --base-url supplies the one required setting.
func loadConfig(c *cli.Context) (authsession.Config, error) {
	var cfg authsession.Config
	loader := config.New(&cfg, config.WithFile(c.String("config")), config.WithOptional())
	if u := c.String("base-url"); u != "" {
		loader.Viper().Set("base_url", u)
	}
	if lvl := c.String("log-level"); lvl != "" {
		loader.Viper().Set("log.level", lvl)
	}
	if err := loader.Load(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func openManager(c *cli.Context, opts ...authsession.Option) (*authsession.Manager, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return authsession.New(c.Context, cfg, opts...)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// profile is what login and whoami print. Tokens are never printed.
type profile struct {
	Username                string `json:"username"`
	UserID                  string `json:"user_id,omitempty"`
	UserType                string `json:"usertype,omitempty"`
	DjangoUserType          string `json:"django_user_type,omitempty"`
	ProjectID               string `json:"project_id,omitempty"`
	Department              string `json:"department,omitempty"`
	Grade                   string `json:"grade,omitempty"`
	IsApproved              *bool  `json:"is_approved,omitempty"`
	HasSubmittedDetails     *bool  `json:"has_submitted_details,omitempty"`
	IsPasswordResetRequired *bool  `json:"is_password_reset_required,omitempty"`
}

func profileOf(s session.Session) profile {
	return profile{
		Username:                s.Username,
		UserID:                  s.UserID,
		UserType:                s.UserType,
		DjangoUserType:          s.DjangoUserType,
		ProjectID:               s.ProjectID,
		Department:              s.Department,
		Grade:                   s.Grade,
		IsApproved:              s.IsApproved,
		HasSubmittedDetails:     s.HasSubmittedDetails,
		IsPasswordResetRequired: s.IsPasswordResetRequired,
	}
}

func readPassword(c *cli.Context) (string, error) {
	if p := c.String("password"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		b, err := io.ReadAll(io.LimitReader(os.Stdin, 4096))
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}
	fmt.Fprint(c.App.ErrWriter, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(c.App.ErrWriter)
	return string(b), err
}

func loginCmd() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and persist the session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "read from the terminal or stdin when empty",
				EnvVars: []string{"AUTHSESSION_PASSWORD"},
			},
		},
		Action: func(c *cli.Context) error {
			password, err := readPassword(c)
			if err != nil {
				return err
			}
			m, err := openManager(c)
			if err != nil {
				return err
			}
			defer m.Close()

			s, err := m.Login(c.Context, c.String("username"), password)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, profileOf(s))
		},
	}
}

func logoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Revoke the refresh token and clear the session",
		Action: func(c *cli.Context) error {
			m, err := openManager(c)
			if err != nil {
				return err
			}
			defer m.Close()
			return printJSON(c.App.Writer, m.Logout(c.Context, true))
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"whoami"},
		Usage:   "Show the persisted session without tokens",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "also ask the backend whether the access token is accepted",
			},
		},
		Action: func(c *cli.Context) error {
			m, err := openManager(c)
			if err != nil {
				return err
			}
			defer m.Close()

			out := struct {
				authsession.Status
				Profile  profile `json:"profile"`
				Verified *bool   `json:"verified,omitempty"`
			}{Status: m.Status(), Profile: profileOf(m.Session())}
			if c.Bool("verify") {
				ok, err := m.Verify(c.Context)
				if err != nil {
					return err
				}
				out.Verified = &ok
			}
			return printJSON(c.App.Writer, out)
		},
	}
}

func refreshCmd() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Force an access token refresh",
		Action: func(c *cli.Context) error {
			m, err := openManager(c)
			if err != nil {
				return err
			}
			defer m.Close()

			res, err := m.Refresh(c.Context)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, map[string]any{
				"outcome":    res.Outcome.String(),
				"expires_at": m.Session().AccessTokenExpiry,
			})
		},
	}
}

func requestCmd() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Send an authenticated request and print the body",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "method",
				Aliases: []string{"X"},
				Value:   http.MethodGet,
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "JSON request body",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one path is required", 2)
			}
			m, err := openManager(c)
			if err != nil {
				return err
			}
			defer m.Close()

			target := c.Args().First()
			if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
				target = strings.TrimRight(m.Config().BaseURL, "/") + "/" + strings.TrimLeft(target, "/")
			}
			var body io.Reader
			if d := c.String("data"); d != "" {
				body = strings.NewReader(d)
			}
			req, err := http.NewRequestWithContext(c.Context, strings.ToUpper(c.String("method")), target, body)
			if err != nil {
				return err
			}
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := m.HTTPClient().Do(req)
			if err != nil {
				if errors.Is(err, errors.ErrAuthenticationFailed) || errors.Is(err, errors.ErrSessionExpired) {
					return cli.Exit(fmt.Sprintf("%v; run `%s login`", err, name), 3)
				}
				return err
			}
			defer resp.Body.Close()

			if _, err := io.Copy(c.App.Writer, resp.Body); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer)
			if resp.StatusCode >= http.StatusBadRequest {
				return cli.Exit(resp.Status, 1)
			}
			return nil
		},
	}
}

func init() {
	register(loginCmd, logoutCmd, statusCmd, refreshCmd, requestCmd)
}
