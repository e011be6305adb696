package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/lendconsole/api"
)

type dashboard struct {
	User     string                   `json:"user"`
	Role     string                   `json:"role"`
	Credits  int                      `json:"credits"`
	ByStatus map[api.CreditStatus]int `json:"byStatus"`
	ByType   *api.Summary             `json:"byType"`
}

func (a *app) runDashboard(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: lendctl dashboard")
	}
	if err := a.enter(ctx, routeDashboard); err != nil {
		return err
	}

	credits := a.api.Credits()
	n, err := credits.Count(ctx)
	if err != nil {
		return err
	}
	byStatus, err := credits.StatusSummary(ctx)
	if err != nil {
		return err
	}
	byType, err := a.api.Reporting().CreditsByType(ctx)
	if err != nil {
		return err
	}

	d := dashboard{Credits: n, ByStatus: byStatus, ByType: byType}
	if s, ok := a.mgr.Current(); ok {
		d.User, d.Role = s.Username, string(s.Role)
	}
	return a.render(d, func() {
		fmt.Fprintf(a.out, "Signed in as %s (%s)\n\n", d.User, d.Role)
		rows := make([][]string, 0, len(api.CreditStatuses))
		for _, st := range api.CreditStatuses {
			rows = append(rows, []string{colorStatus(st, a.color), strconv.Itoa(byStatus[st])})
		}
		rows = append(rows, []string{"TOTAL", strconv.Itoa(n)})
		RenderTable(a.out, []string{"STATUS", "CREDITS"}, rows)
		fmt.Fprintln(a.out)
		a.summaryTable(byType)
	})
}
