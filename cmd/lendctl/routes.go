package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/lendconsole"
	"github.com/MrEthical07/lendconsole/guard"
)

// Console routes checked before a command touches the API.
const (
	routeLogin      = "/auth/login"
	routeRegister   = "/auth/register"
	routeDashboard  = "/dashboard"
	routeClients    = "/clients"
	routeCredits    = "/credits"
	routeReview     = "/credits/review"
	routeRepayments = "/repayments"
)

func defaultRoutes() []guard.Route {
	return []guard.Route{
		{Pattern: routeLogin, Public: true, Title: "Sign in"},
		{Pattern: routeRegister, Public: true, Title: "Create account"},
		{Pattern: routeDashboard, Title: "Dashboard"},
		{Pattern: routeClients + "/**", Title: "Clients"},
		{Pattern: routeCredits + "/**", Title: "Credits"},
		{Pattern: routeReview, Roles: []string{string(lendconsole.RoleAdmin)}, Title: "Credit review"},
		{Pattern: routeRepayments + "/**", Title: "Repayments"},
	}
}

type routesFile struct {
	Routes []guard.Route `yaml:"routes"`
}

// loadRoutes reads a route table from path, or returns the built-in table
// when path is empty.
func loadRoutes(path string) ([]guard.Route, error) {
	if path == "" {
		return defaultRoutes(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes: %w", err)
	}
	var f routesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse routes %s: %w", path, err)
	}
	if len(f.Routes) == 0 {
		return nil, errors.New("routes file defines no routes")
	}
	return f.Routes, nil
}
