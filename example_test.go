package lendconsole_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-logr/stdr"

	"github.com/MrEthical07/lendconsole"
	"github.com/MrEthical07/lendconsole/api"
	"github.com/MrEthical07/lendconsole/guard"
)

// ExampleNew builds a manager that keeps its session in a file and logs
// through the standard library logger.
func ExampleNew() {
	cfg := lendconsole.DefaultConfig()
	cfg.API.BaseURL = "https://lending.example.com"
	cfg.Store.Kind = lendconsole.StoreFile
	cfg.Store.Path = "/var/lib/lendctl/session.json"

	m, err := lendconsole.New().
		WithConfig(cfg).
		WithLogger(stdr.New(log.New(os.Stderr, "", log.LstdFlags))).
		WithNavigator(lendconsole.NavigatorFunc(func(route, notice string) {
			fmt.Fprintln(os.Stderr, "go to", route, notice)
		})).
		Build()
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	if s, ok := m.CheckAuthState(context.Background()); ok {
		fmt.Println("welcome back", s.Username)
	}
}

// ExampleManager_Login shows how login failures map to display messages.
func ExampleManager_Login() {
	var m *lendconsole.Manager
	_, err := m.Login(context.Background(), "alice", "secret")
	switch {
	case err == nil:
	case errors.Is(err, lendconsole.ErrIncompleteResponse):
		fmt.Println("the server answered without a usable session")
	default:
		fmt.Println(api.Message(err))
	}
}

// ExampleManager_Authority guards console routes with the session's role.
func ExampleManager_Authority() {
	var m *lendconsole.Manager
	table, err := guard.NewTable(m.Authority(), guard.Routes{}, []guard.Route{
		{Pattern: "/auth/login", Public: true},
		{Pattern: "/dashboard"},
		{Pattern: "/credits/review", Roles: []string{string(lendconsole.RoleAdmin)}},
	})
	if err != nil {
		log.Fatal(err)
	}
	d := table.Navigate(context.Background(), "/credits/review")
	if !d.Allow {
		fmt.Println("redirect to", d.Redirect, d.Notice)
	}
}
