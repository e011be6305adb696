package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/MrEthical07/lendconsole/api"
)

const creditsUsage = "lendctl credits list|get|create|update|delete|approve|reject|status|type|schedule|payment|validate|search|count|summary"

type creditFlags struct {
	typ      string
	property string
	req      api.CreditRequest
}

func bindCreditFlags(fs *pflag.FlagSet) *creditFlags {
	cf := &creditFlags{}
	fs.StringVar(&cf.typ, "type", "", "PERSONNEL, IMMOBILIER or PROFESSIONNEL")
	fs.Float64Var(&cf.req.Amount, "amount", 0, "amount borrowed")
	fs.IntVar(&cf.req.DurationMonths, "months", 0, "repayment duration in months")
	fs.Float64Var(&cf.req.InterestRate, "rate", 0, "annual interest rate in percent")
	fs.Int64Var(&cf.req.ClientID, "client", 0, "client id")
	fs.StringVar(&cf.req.Purpose, "purpose", "", "purpose of a personal credit")
	fs.StringVar(&cf.property, "property", "", "property type of a real-estate credit")
	fs.StringVar(&cf.req.CompanyName, "company", "", "company of a professional credit")
	return cf
}

func (cf *creditFlags) request() (api.CreditRequest, error) {
	req := cf.req
	if cf.typ != "" {
		t, err := api.ParseCreditType(cf.typ)
		if err != nil {
			return req, err
		}
		req.Type = t
	}
	if cf.property != "" {
		p, err := api.ParsePropertyType(cf.property)
		if err != nil {
			return req, err
		}
		req.PropertyType = p
	}
	return req, nil
}

func (a *app) runCredits(ctx context.Context, args []string) error {
	sub, rest, err := subcommand(args, creditsUsage)
	if err != nil {
		return err
	}
	svc := a.api.Credits()
	fs := a.flags("credits " + sub)

	switch sub {
	case "list":
		status := fs.String("status", "", "only credits with this status")
		typ := fs.String("type", "", "only credits of this type")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := a.enter(ctx, routeCredits); err != nil {
			return err
		}
		var list []api.CreditSummary
		switch {
		case *status != "" && *typ != "":
			return errors.New("--status and --type are mutually exclusive")
		case *status != "":
			st, perr := api.ParseCreditStatus(*status)
			if perr != nil {
				return perr
			}
			list, err = svc.ByStatus(ctx, st)
		case *typ != "":
			t, perr := api.ParseCreditType(*typ)
			if perr != nil {
				return perr
			}
			list, err = svc.ByType(ctx, t)
		default:
			list, err = svc.List(ctx)
		}
		if err != nil {
			return err
		}
		return a.render(list, func() { a.creditTable(list) })

	case "get":
		id, err := parseIDArg(fs, rest, "lendctl credits get <id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, fmt.Sprintf("%s/%d", routeCredits, id)); err != nil {
			return err
		}
		c, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}
		return a.render(c, func() { a.creditDetail(c) })

	case "create", "update", "validate":
		cf := bindCreditFlags(fs)
		if err := fs.Parse(rest); err != nil {
			return err
		}
		req, err := cf.request()
		if err != nil {
			return err
		}
		switch sub {
		case "create":
			if err := a.enter(ctx, routeCredits+"/new"); err != nil {
				return err
			}
			c, err := svc.Create(ctx, req)
			if err != nil {
				return err
			}
			return a.render(c, func() { fmt.Fprintf(a.out, "Credit %d created (%s)\n", c.ID, c.Status) })
		case "update":
			id, err := oneID(fs, "lendctl credits update <id> [flags]")
			if err != nil {
				return err
			}
			if err := a.enter(ctx, fmt.Sprintf("%s/%d/edit", routeCredits, id)); err != nil {
				return err
			}
			c, err := svc.Update(ctx, id, req)
			if err != nil {
				return err
			}
			return a.render(c, func() { fmt.Fprintf(a.out, "Credit %d saved\n", c.ID) })
		default:
			if err := a.enter(ctx, routeCredits+"/new"); err != nil {
				return err
			}
			res, err := svc.Validate(ctx, req)
			if err != nil {
				return err
			}
			return a.render(res, func() {
				if res.Valid {
					fmt.Fprintln(a.out, "Credit request is eligible")
					return
				}
				fmt.Fprintln(a.out, "Credit request is not eligible:")
				for _, e := range res.Errors {
					fmt.Fprintf(a.out, "  - %s\n", e)
				}
			})
		}

	case "delete":
		id, err := parseIDArg(fs, rest, "lendctl credits delete <id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, fmt.Sprintf("%s/%d", routeCredits, id)); err != nil {
			return err
		}
		if err := svc.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Credit %d deleted\n", id)
		return nil

	case "approve", "reject":
		on := fs.String("date", "", "approval date (YYYY-MM-DD, default today)")
		reason := fs.String("reason", "", "rejection reason")
		id, err := parseIDArg(fs, rest, "lendctl credits "+sub+" <id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, routeReview); err != nil {
			return err
		}
		var c *api.Credit
		if sub == "approve" {
			d, derr := optionalDate(*on)
			if derr != nil {
				return derr
			}
			c, err = svc.Approve(ctx, id, d)
		} else {
			c, err = svc.Reject(ctx, id, *reason)
		}
		if err != nil {
			return err
		}
		return a.render(c, func() {
			fmt.Fprintf(a.out, "Credit %d is now %s\n", c.ID, colorStatus(c.Status, a.color))
		})

	case "status":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if fs.NArg() != 2 {
			return errors.New("usage: lendctl credits status <id> EN_COURS|ACCEPTE|REJETE")
		}
		id, err := parseID(fs.Arg(0))
		if err != nil {
			return err
		}
		st, err := api.ParseCreditStatus(fs.Arg(1))
		if err != nil {
			return err
		}
		if err := a.enter(ctx, routeReview); err != nil {
			return err
		}
		c, err := svc.SetStatus(ctx, id, st)
		if err != nil {
			return err
		}
		return a.render(c, func() {
			fmt.Fprintf(a.out, "Credit %d is now %s\n", c.ID, colorStatus(c.Status, a.color))
		})

	case "type":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("usage: lendctl credits type PERSONNEL|IMMOBILIER|PROFESSIONNEL")
		}
		t, err := api.ParseCreditType(fs.Arg(0))
		if err != nil {
			return err
		}
		if err := a.enter(ctx, routeCredits); err != nil {
			return err
		}
		list, err := svc.ByType(ctx, t)
		if err != nil {
			return err
		}
		return a.render(list, func() { a.creditTable(list) })

	case "schedule":
		local := fs.Bool("local", false, "compute the schedule locally from the credit terms")
		id, err := parseIDArg(fs, rest, "lendctl credits schedule <id> [--local]")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, fmt.Sprintf("%s/%d", routeCredits, id)); err != nil {
			return err
		}
		var entries []api.ScheduleEntry
		if *local {
			c, err := svc.Get(ctx, id)
			if err != nil {
				return err
			}
			start := c.AcceptedOn.Time
			if start.IsZero() {
				start = time.Now()
			}
			plan, err := api.Amortize(c.Amount, c.InterestRate, c.DurationMonths, start)
			if err != nil {
				return err
			}
			entries = plan.Schedule
		} else {
			entries, err = svc.Schedule(ctx, id)
			if err != nil {
				return err
			}
		}
		return a.render(entries, func() { a.scheduleTable(entries) })

	case "payment":
		id, err := parseIDArg(fs, rest, "lendctl credits payment <id>")
		if err != nil {
			return err
		}
		if err := a.enter(ctx, fmt.Sprintf("%s/%d", routeCredits, id)); err != nil {
			return err
		}
		p, err := svc.MonthlyPayment(ctx, id)
		if err != nil {
			return err
		}
		return a.render(p, func() {
			KeyValues(a.out, [][2]string{
				{"Credit", strconv.FormatInt(p.CreditID, 10)},
				{"Amount", money(p.Amount)},
				{"Duration", fmt.Sprintf("%d months", p.DurationMonths)},
				{"Rate", fmt.Sprintf("%.2f%%", p.InterestRate)},
				{"Monthly", money(p.Monthly)},
				{"Interest", money(p.TotalInterest)},
				{"Total", money(p.TotalPayment)},
			})
		})

	case "search":
		fs.Float64("min", 0, "minimum amount")
		fs.Float64("max", 0, "maximum amount")
		from := fs.String("from", "", "requested on or after (YYYY-MM-DD)")
		to := fs.String("to", "", "requested on or before (YYYY-MM-DD)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		byAmount := fs.Changed("min") || fs.Changed("max")
		byDate := *from != "" || *to != ""
		if byAmount == byDate {
			return errors.New("usage: lendctl credits search --min/--max | --from/--to")
		}
		if err := a.enter(ctx, routeCredits); err != nil {
			return err
		}
		var list []api.CreditSummary
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
		return a.render(list, func() { a.creditTable(list) })

	case "count":
		if err := a.enter(ctx, routeCredits); err != nil {
			return err
		}
		n, err := svc.Count(ctx)
		if err != nil {
			return err
		}
		return a.render(map[string]int{"count": n}, func() { fmt.Fprintln(a.out, n) })

	case "summary":
		by := fs.String("by", "status", "group by status or type")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := a.enter(ctx, routeCredits); err != nil {
			return err
		}
		var s *api.Summary
		switch strings.ToLower(*by) {
		case "status":
			s, err = a.api.Reporting().CreditsByStatus(ctx)
		case "type":
			s, err = a.api.Reporting().CreditsByType(ctx)
		default:
			return fmt.Errorf("--by must be status or type, got %q", *by)
		}
		if err != nil {
			return err
		}
		return a.render(s, func() { a.summaryTable(s) })

	default:
		return fmt.Errorf("unknown credits command %q (usage: %s)", sub, creditsUsage)
	}
}

func (a *app) creditTable(list []api.CreditSummary) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No credits")
		return
	}
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			string(c.Type),
			colorStatus(c.Status, a.color),
			money(c.Amount),
			strconv.Itoa(c.DurationMonths),
			dateOrDash(c.RequestedOn),
			truncate(orDash(c.Detail()), 30),
		})
	}
	RenderTable(a.out, []string{"ID", "TYPE", "STATUS", "AMOUNT", "MONTHS", "REQUESTED", "DETAIL"}, rows)
}

func (a *app) creditDetail(c *api.Credit) {
	pairs := [][2]string{
		{"ID", strconv.FormatInt(c.ID, 10)},
		{"Type", string(c.Type)},
		{"Status", colorStatus(c.Status, a.color)},
		{"Amount", money(c.Amount)},
		{"Duration", fmt.Sprintf("%d months", c.DurationMonths)},
		{"Rate", fmt.Sprintf("%.2f%%", c.InterestRate)},
		{"Requested", dateOrDash(c.RequestedOn)},
		{"Accepted", dateOrDash(c.AcceptedOn)},
		{"Detail", orDash(c.Detail())},
	}
	if c.Client != nil {
		pairs = append(pairs, [2]string{"Client", fmt.Sprintf("%s <%s> (#%d)", c.Client.Name, c.Client.Email, c.Client.ID)})
	}
	KeyValues(a.out, pairs)
	if len(c.Repayments) > 0 {
		fmt.Fprintln(a.out)
		a.repaymentTable(c.Repayments)
	}
}

func (a *app) scheduleTable(entries []api.ScheduleEntry) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(e.Number),
			dateOrDash(e.Date),
			money(e.Total),
			money(e.Principal),
			money(e.Interest),
			money(e.Balance),
		})
	}
	RenderTable(a.out, []string{"#", "DATE", "TOTAL", "PRINCIPAL", "INTEREST", "BALANCE"}, rows)
}

func (a *app) summaryTable(s *api.Summary) {
	rows := make([][]string, 0, len(s.Groups))
	for _, k := range s.Keys() {
		g := s.Groups[k]
		rows = append(rows, []string{k, strconv.Itoa(g.Count), money(g.TotalAmount)})
	}
	rows = append(rows, []string{"TOTAL", strconv.Itoa(s.TotalCredits), money(s.TotalAmount)})
	RenderTable(a.out, []string{"GROUP", "CREDITS", "AMOUNT"}, rows)
}
