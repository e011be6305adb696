package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/lendconsole"
	"github.com/MrEthical07/lendconsole/api"
	"github.com/MrEthical07/lendconsole/token"
)

func (a *app) runLogin(ctx context.Context, args []string) error {
	fs := a.flags("login")
	username := fs.StringP("username", "u", "", "user name")
	password := fs.StringP("password", "p", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, routeLogin); err != nil {
		return err
	}

	var err error
	if *username == "" {
		if *username, err = a.prompt("Username: ", false); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = a.prompt("Password: ", true); err != nil {
			return err
		}
	}
	if strings.TrimSpace(*username) == "" || *password == "" {
		return errors.New("username and password are required")
	}

	s, err := a.mgr.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", s.Username, s.Role)
	return nil
}

func (a *app) runLogout(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: lendctl logout")
	}
	_, wasLoggedIn := a.mgr.Current()
	a.mgr.Logout(ctx)
	if wasLoggedIn {
		fmt.Fprintln(a.out, "Logged out")
	} else {
		fmt.Fprintln(a.out, "No active session")
	}
	return nil
}

type whoami struct {
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	Server    string     `json:"server"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (a *app) runWhoami(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: lendctl whoami")
	}
	s, ok := a.mgr.Current()
	if !ok {
		return errLoginRequired
	}
	w := whoami{Username: s.Username, Role: string(s.Role), Server: a.api.BaseURL()}
	expires := "never"
	if md, err := token.Inspect(s.Token); err == nil {
		if left, ok := md.Remaining(time.Now()); ok {
			exp := md.ExpiresAt
			w.ExpiresAt = &exp
			expires = fmt.Sprintf("%s (in %s)", exp.Local().Format(time.RFC3339), left.Round(time.Second))
		}
	}
	return a.render(w, func() {
		KeyValues(a.out, [][2]string{
			{"User", w.Username},
			{"Role", w.Role},
			{"Server", w.Server},
			{"Expires", expires},
		})
	})
}

func (a *app) runRegister(ctx context.Context, args []string) error {
	fs := a.flags("register")
	var req api.RegisterRequest
	fs.StringVar(&req.Username, "username", "", "user name")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.FullName, "full-name", "", "full name")
	fs.StringVar(&req.Role, "role", "", "role (ADMIN, EMPLOYEE or ROLE_CLIENT)")
	fs.StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.enter(ctx, routeRegister); err != nil {
		return err
	}
	if req.Password == "" {
		p, err := a.prompt("Password: ", true)
		if err != nil {
			return err
		}
		req.Password = p
	}
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))

	msg, err := a.mgr.Register(ctx, req)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Account created"
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

type routeAccess struct {
	Pattern string   `json:"pattern"`
	Title   string   `json:"title,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	Public  bool     `json:"public,omitempty"`
	Allowed bool     `json:"allowed"`
}

func (a *app) runRoutes(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: lendctl routes")
	}
	authed := a.mgr.IsAuthenticated(ctx)
	var out []routeAccess
	for _, r := range a.table.Routes() {
		ra := routeAccess{Pattern: r.Pattern, Title: r.Title, Roles: r.Roles, Public: r.Public}
		switch {
		case r.Public:
			ra.Allowed = true
		case !authed:
		case len(r.Roles) == 0:
			ra.Allowed = true
		default:
			ra.Allowed = a.mgr.HasRole(toRoles(r.Roles)...)
		}
		out = append(out, ra)
	}
	return a.render(out, func() {
		rows := make([][]string, 0, len(out))
		for _, r := range out {
			roles := "any"
			if r.Public {
				roles = "public"
			} else if len(r.Roles) > 0 {
				roles = strings.Join(r.Roles, ",")
			}
			access := "no"
			if r.Allowed {
				access = "yes"
			}
			rows = append(rows, []string{r.Pattern, orDash(r.Title), roles, access})
		}
		RenderTable(a.out, []string{"ROUTE", "TITLE", "ROLES", "ACCESS"}, rows)
	})
}

func toRoles(names []string) []lendconsole.Role {
	out := make([]lendconsole.Role, len(names))
	for i, n := range names {
		out[i] = lendconsole.Role(n)
	}
	return out
}
