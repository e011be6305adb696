package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/lendconsole/api"
)

const repaymentsUsage = "lendctl repayments list|get|create|update|delete|credit|type|early|installment|balance|search"

func (a *app) runRepayments(ctx context.Context, args []string) error {
	sub, rest, err := subcommand(args, repaymentsUsage)
	if err != nil {
		return err
	}
	svc := a.api.Repayments()
	fs := a.flags("repayments " + sub)

	switch sub {
	case "list":
		if err := a.enter(ctx, routeRepayments); err != nil {
			return err
		}
		list, err := svc.List(ctx)
		if err != nil {
			return err
		}
		return a.render(list, func() { a.repaymentTable(list) })

	case "get":
		id, err := parseIDArg(fs, rest, "lendctl repayments get <id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, fmt.Sprintf("%s/%d", routeRepayments, id)); err != nil {
			return err
		}
		r, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}
		return a.render(r, func() { a.repaymentTable([]api.Repayment{*r}) })

	case "create", "update":
		creditID := fs.Int64("credit", 0, "credit id")
		amount := fs.Float64("amount", 0, "amount repaid")
		typ := fs.String("type", string(api.RepaymentMonthly), "MENSUALITE or REMBOURSEMENT_ANTICIPE")
		on := fs.String("date", "", "repayment date (YYYY-MM-DD, default today)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		t, err := api.ParseRepaymentType(*typ)
		if err != nil {
			return err
		}
		d, err := optionalDate(*on)
		if err != nil {
			return err
		}
		if d.IsZero() {
			d = api.NewDate(time.Now())
		}
		req := api.RepaymentRequest{Date: d, Amount: *amount, Type: t, CreditID: *creditID}

		var r *api.Repayment
		if sub == "create" {
			if fs.NArg() != 0 {
				return errors.New("usage: lendctl repayments create --credit <id> --amount <n> [--type T] [--date D]")
			}
			if err := a.enter(ctx, routeRepayments+"/new"); err != nil {
				return err
			}
			r, err = svc.Create(ctx, req)
		} else {
			id, perr := oneID(fs, "lendctl repayments update <id> --credit <id> --amount <n> [--type T] [--date D]")
			if perr != nil {
				return perr
			}
			if err := a.enter(ctx, fmt.Sprintf("%s/%d/edit", routeRepayments, id)); err != nil {
				return err
			}
			r, err = svc.Update(ctx, id, req)
		}
		if err != nil {
			return err
		}
		return a.render(r, func() { fmt.Fprintf(a.out, "Repayment %d saved\n", r.ID) })

	case "delete":
		id, err := parseIDArg(fs, rest, "lendctl repayments delete <id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, fmt.Sprintf("%s/%d", routeRepayments, id)); err != nil {
			return err
		}
		if err := svc.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Repayment %d deleted\n", id)
		return nil

	case "credit":
		id, err := parseIDArg(fs, rest, "lendctl repayments credit <credit-id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, routeRepayments); err != nil {
			return err
		}
		list, err := svc.ByCredit(ctx, id)
		if err != nil {
			return err
		}
		return a.render(list, func() { a.repaymentTable(list) })

	case "type":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("usage: lendctl repayments type MENSUALITE|REMBOURSEMENT_ANTICIPE")
		}
		t, err := api.ParseRepaymentType(fs.Arg(0))
		if err != nil {
			return err
		}
		if err := a.enter(ctx, routeRepayments); err != nil {
			return err
		}
		list, err := svc.ByType(ctx, t)
		if err != nil {
			return err
		}
		return a.render(list, func() { a.repaymentTable(list) })

	case "early":
		amount := fs.Float64("amount", 0, "amount repaid early")
		on := fs.String("date", "", "repayment date (YYYY-MM-DD, default today)")
		id, err := parseIDArg(fs, rest, "lendctl repayments early <credit-id> --amount <n> [--date D]")
		if err != nil {
			return err
		}
		d, err := optionalDate(*on)
		if err != nil {
			return err
		}
		if err := a.enter(ctx, routeRepayments+"/new"); err != nil {
			return err
		}
		res, err := svc.Early(ctx, id, *amount, d)
		if err != nil {
			return err
		}
		return a.render(res, func() {
			fmt.Fprintf(a.out, "Repayment %d recorded\n\n", res.Repayment.ID)
			a.balanceTable(&res.Balance)
		})

	case "installment":
		on := fs.String("date", "", "payment date (YYYY-MM-DD, default today)")
		id, err := parseIDArg(fs, rest, "lendctl repayments installment <credit-id> [--date D]")
		if err != nil {
			return err
		}
		d, err := optionalDate(*on)
		if err != nil {
			return err
		}
		if err := a.enter(ctx, routeRepayments+"/new"); err != nil {
			return err
		}
		r, err := svc.Installment(ctx, id, d)
		if err != nil {
			return err
		}
		return a.render(r, func() {
			fmt.Fprintf(a.out, "Instalment %d recorded: %s on %s\n", r.ID, money(r.Amount), dateOrDash(r.Date))
		})

	case "balance":
		id, err := parseIDArg(fs, rest, "lendctl repayments balance <credit-id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, routeRepayments); err != nil {
			return err
		}
		b, err := svc.RemainingBalance(ctx, id)
		if err != nil {
			return err
		}
		return a.render(b, func() { a.balanceTable(b) })

	case "search":
		fs.Float64("min", 0, "minimum amount")
		fs.Float64("max", 0, "maximum amount")
		from := fs.String("from", "", "paid on or after (YYYY-MM-DD)")
		to := fs.String("to", "", "paid on or before (YYYY-MM-DD)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		byAmount := fs.Changed("min") || fs.Changed("max")
		byDate := *from != "" || *to != ""
		if byAmount == byDate {
			return errors.New("usage: lendctl repayments search --min/--max | --from/--to")
		}
		if err := a.enter(ctx, routeRepayments); err != nil {
			return err
		}
		var list []api.Repayment
		if byAmount {
			list, err = svc.SearchByAmount(ctx, optionalFloat(fs, "min"), optionalFloat(fs, "max"))
		} else {
			start, derr := optionalDate(*from)
			if derr != nil {
				return derr
			}
			end, derr := optionalDate(*to)
			if derr != nil {
				return derr
			}
			list, err = svc.SearchByDate(ctx, start, end)
		}
		if err != nil {
			return err
		}
		return a.render(list, func() { a.repaymentTable(list) })

	default:
		return fmt.Errorf("unknown repayments command %q (usage: %s)", sub, repaymentsUsage)
	}
}

func (a *app) repaymentTable(list []api.Repayment) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No repayments")
		return
	}
	rows := make([][]string, 0, len(list))
	for _, r := range list {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.CreditID, 10),
			string(r.Type),
			money(r.Amount),
			dateOrDash(r.Date),
		})
	}
	RenderTable(a.out, []string{"ID", "CREDIT", "TYPE", "AMOUNT", "DATE"}, rows)
}

func (a *app) balanceTable(b *api.RemainingBalance) {
	KeyValues(a.out, [][2]string{
		{"Credit", strconv.FormatInt(b.CreditID, 10)},
		{"Initial amount", money(b.InitialAmount)},
		{"Total with interest", money(b.TotalWithInterest)},
		{"Total interest", money(b.TotalInterest)},
		{"Repaid", money(b.Repaid)},
		{"Remaining", money(b.Remaining)},
		{"Monthly payments", strconv.Itoa(b.MonthlyPayments)},
		{"Early repayments", strconv.Itoa(b.EarlyRepayments)},
	})
}
