package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/lendconsole/api"
)

const clientsUsage = "lendctl clients list|get <id>|create|update <id>|delete <id>|credits <id>|search"

func (a *app) runClients(ctx context.Context, args []string) error {
	sub, rest, err := subcommand(args, clientsUsage)
	if err != nil {
		return err
	}
	svc := a.api.Clients()
	fs := a.flags("clients " + sub)

	switch sub {
	case "list":
		if err := a.enter(ctx, routeClients); err != nil {
			return err
		}
		list, err := svc.List(ctx)
		if err != nil {
			return err
		}
		return a.printBorrowers(list)

	case "get":
		id, err := parseIDArg(fs, rest, "lendctl clients get <id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, fmt.Sprintf("%s/%d", routeClients, id)); err != nil {
			return err
		}
		b, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}
		return a.render(b, func() {
			KeyValues(a.out, [][2]string{
				{"ID", strconv.FormatInt(b.ID, 10)},
				{"Name", b.Name},
				{"Email", b.Email},
				{"Credits", strconv.Itoa(len(b.Credits))},
			})
			if len(b.Credits) > 0 {
				fmt.Fprintln(a.out)
				a.creditTable(b.Credits)
			}
		})

	case "create", "update":
		name := fs.String("name", "", "client name")
		email := fs.String("email", "", "client email")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		in := api.Borrower{Name: *name, Email: *email}
		var out *api.Borrower
		if sub == "create" {
			if fs.NArg() != 0 {
				return errors.New("usage: lendctl clients create --name <n> --email <e>")
			}
			if err := a.enter(ctx, routeClients+"/new"); err != nil {
				return err
			}
			out, err = svc.Create(ctx, in)
		} else {
			id, perr := oneID(fs, "lendctl clients update <id> --name <n> --email <e>")
			if perr != nil {
				return perr
			}
			if err := a.enter(ctx, fmt.Sprintf("%s/%d/edit", routeClients, id)); err != nil {
				return err
			}
			out, err = svc.Update(ctx, id, in)
		}
		if err != nil {
			return err
		}
		return a.render(out, func() {
			fmt.Fprintf(a.out, "Client %d saved\n", out.ID)
		})

	case "delete":
		id, err := parseIDArg(fs, rest, "lendctl clients delete <id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, fmt.Sprintf("%s/%d", routeClients, id)); err != nil {
			return err
		}
		if err := svc.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Client %d deleted\n", id)
		return nil

	case "credits":
		id, err := parseIDArg(fs, rest, "lendctl clients credits <id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, fmt.Sprintf("%s/%d", routeClients, id)); err != nil {
			return err
		}
		list, err := svc.Credits(ctx, id)
		if err != nil {
			return err
		}
		return a.render(list, func() { a.creditTable(list) })

	case "search":
		name := fs.String("name", "", "match names containing this text")
		email := fs.String("email", "", "match this email")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if (*name == "") == (*email == "") {
			return errors.New("usage: lendctl clients search --name <text> | --email <address>")
		}
		if err := a.enter(ctx, routeClients); err != nil {
			return err
		}
		var list []api.Borrower
		if *name != "" {
			list, err = svc.SearchByName(ctx, *name)
		} else {
			list, err = svc.SearchByEmail(ctx, *email)
		}
		if err != nil {
			return err
		}
		return a.printBorrowers(list)

	default:
		return fmt.Errorf("unknown clients command %q (usage: %s)", sub, clientsUsage)
	}
}

func (a *app) printBorrowers(list []api.Borrower) error {
	return a.render(list, func() {
		if len(list) == 0 {
			fmt.Fprintln(a.out, "No clients")
			return
		}
		rows := make([][]string, 0, len(list))
		for _, b := range list {
			rows = append(rows, []string{
				strconv.FormatInt(b.ID, 10),
				truncate(b.Name, 32),
				b.Email,
				strconv.Itoa(len(b.Credits)),
			})
		}
		RenderTable(a.out, []string{"ID", "NAME", "EMAIL", "CREDITS"}, rows)
	})
}
