package backendtest

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"github.com/MrEthical07/lendconsole/api"
	"github.com/MrEthical07/lendconsole/token"
)

func withClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func claimsFrom(ctx context.Context) *token.Claims {
	c, _ := ctx.Value(claimsKey{}).(*token.Claims)
	return c
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// clients

func (s *Server) listClients(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Borrower, 0, len(s.clients))
	for _, id := range sortedIDs(s.clients) {
		out = append(out, s.borrowerLocked(id))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) borrowerLocked(id int64) api.Borrower {
	b := *s.clients[id]
	b.Credits = s.creditsWhereLocked(func(c *api.Credit) bool {
		return c.Client != nil && c.Client.ID == id
	})
	if len(b.Credits) == 0 {
		b.Credits = nil
	}
	return b
}

func (s *Server) getClient(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		writeError(w, http.StatusNotFound, "Client not found with id : '"+mux.Vars(r)["id"]+"'")
		return
	}
	writeJSON(w, http.StatusOK, s.borrowerLocked(id))
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var b api.Borrower
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil || b.Name == "" || b.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	b.ID, b.Credits = s.nextID, nil
	s.clients[b.ID] = &b
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) updateClient(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	var b api.Borrower
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.clients[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Client not found")
		return
	}
	cur.Name, cur.Email = b.Name, b.Email
	writeJSON(w, http.StatusOK, s.borrowerLocked(id))
}

func (s *Server) deleteClient(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		writeError(w, http.StatusNotFound, "Client not found")
		return
	}
	delete(s.clients, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clientCredits(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		writeError(w, http.StatusNotFound, "Client not found")
		return
	}
	writeJSON(w, http.StatusOK, s.creditsWhereLocked(func(c *api.Credit) bool {
		return c.Client != nil && c.Client.ID == id
	}))
}

func (s *Server) searchClients(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		needle := strings.ToLower(r.URL.Query().Get(field))
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []api.Borrower{}
		for _, id := range sortedIDs(s.clients) {
			c := s.clients[id]
			hay := c.Name
			if field == "email" {
				hay = c.Email
			}
			if strings.Contains(strings.ToLower(hay), needle) {
				out = append(out, s.borrowerLocked(id))
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// credits

func (s *Server) newCreditLocked(req api.CreditRequest) *api.Credit {
	req.Normalize()
	s.nextID++
	c := &api.Credit{
		CreditSummary: api.CreditSummary{
			ID:             s.nextID,
			RequestedOn:    api.NewDate(s.now()),
			Status:         api.StatusPending,
			Amount:         req.Amount,
			DurationMonths: req.DurationMonths,
			Type:           req.Type,
			Purpose:        req.Purpose,
			PropertyType:   req.PropertyType,
			CompanyName:    req.CompanyName,
		},
		InterestRate: req.InterestRate,
	}
	if b, ok := s.clients[req.ClientID]; ok {
		c.Client = &api.BorrowerSummary{ID: b.ID, Name: b.Name, Email: b.Email}
	}
	s.credits[c.ID] = c
	return c
}

func (s *Server) creditsWhereLocked(keep func(*api.Credit) bool) []api.CreditSummary {
	out := []api.CreditSummary{}
	for _, id := range sortedIDs(s.credits) {
		c := s.credits[id]
		if keep == nil || keep(c) {
			out = append(out, c.CreditSummary)
		}
	}
	return out
}

func (s *Server) creditLocked(id int64) api.Credit {
	c := *s.credits[id]
	c.Repayments = nil
	for _, rid := range sortedIDs(s.repayments) {
		if rp := s.repayments[rid]; rp.CreditID == id {
			c.Repayments = append(c.Repayments, *rp)
		}
	}
	if c.Client != nil {
		cs := *c.Client
		cs.CreditCount = len(s.creditsWhereLocked(func(o *api.Credit) bool {
			return o.Client != nil && o.Client.ID == cs.ID
		}))
		c.Client = &cs
	}
	return c
}

func (s *Server) listCredits(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.creditsWhereLocked(nil))
}

func (s *Server) withCredit(w http.ResponseWriter, r *http.Request, fn func(c *api.Credit)) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credits[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Credit not found with id : '"+mux.Vars(r)["id"]+"'")
		return
	}
	fn(c)
}

func (s *Server) getCredit(w http.ResponseWriter, r *http.Request) {
	s.withCredit(w, r, func(c *api.Credit) {
		writeJSON(w, http.StatusOK, s.creditLocked(c.ID))
	})
}

func decodeCreditRequest(w http.ResponseWriter, r *http.Request) (api.CreditRequest, bool) {
	var req api.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return req, false
	}
	if req.ClientID == 0 {
		writeError(w, http.StatusBadRequest, "Client ID is required")
		return req, false
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Credit amount must be positive")
		return req, false
	}
	return req, true
}

func (s *Server) createCredit(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCreditRequest(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[req.ClientID]; !ok {
		writeError(w, http.StatusNotFound, "Client not found")
		return
	}
	c := s.newCreditLocked(req)
	writeJSON(w, http.StatusCreated, s.creditLocked(c.ID))
}

func (s *Server) updateCredit(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCreditRequest(w, r)
	if !ok {
		return
	}
	req.Normalize()
	s.withCredit(w, r, func(c *api.Credit) {
		c.Amount, c.DurationMonths, c.InterestRate = req.Amount, req.DurationMonths, req.InterestRate
		c.Type, c.Purpose, c.PropertyType, c.CompanyName = req.Type, req.Purpose, req.PropertyType, req.CompanyName
		writeJSON(w, http.StatusOK, s.creditLocked(c.ID))
	})
}

func (s *Server) deleteCredit(w http.ResponseWriter, r *http.Request) {
	s.withCredit(w, r, func(c *api.Credit) {
		delete(s.credits, c.ID)
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) approveCredit(w http.ResponseWriter, r *http.Request) {
	on, ok := queryDate(r, "approvalDate")
	if !ok {
		on = api.NewDate(s.now())
	}
	s.withCredit(w, r, func(c *api.Credit) {
		if c.Status != api.StatusPending {
			writeError(w, http.StatusBadRequest, "Only pending credits can be approved")
			return
		}
		c.Status, c.AcceptedOn = api.StatusAccepted, on
		writeJSON(w, http.StatusOK, s.creditLocked(c.ID))
	})
}

func (s *Server) rejectCredit(w http.ResponseWriter, r *http.Request) {
	s.withCredit(w, r, func(c *api.Credit) {
		if c.Status != api.StatusPending {
			writeError(w, http.StatusBadRequest, "Only pending credits can be rejected")
			return
		}
		c.Status = api.StatusRejected
		writeJSON(w, http.StatusOK, s.creditLocked(c.ID))
	})
}

func (s *Server) setCreditStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status api.CreditStatus `json:"statut"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	s.withCredit(w, r, func(c *api.Credit) {
		c.Status = body.Status
		writeJSON(w, http.StatusOK, s.creditLocked(c.ID))
	})
}

func (s *Server) monthlyPayment(w http.ResponseWriter, r *http.Request) {
	s.withCredit(w, r, func(c *api.Credit) {
		m := api.MonthlyInstalment(c.Amount, c.InterestRate, c.DurationMonths)
		total := m * float64(c.DurationMonths)
		writeJSON(w, http.StatusOK, api.MonthlyPayment{
			CreditID:       c.ID,
			Amount:         c.Amount,
			DurationMonths: c.DurationMonths,
			InterestRate:   c.InterestRate,
			Monthly:        m,
			TotalPayment:   total,
			TotalInterest:  total - c.Amount,
		})
	})
}

func (s *Server) paymentSchedule(w http.ResponseWriter, r *http.Request) {
	s.withCredit(w, r, func(c *api.Credit) {
		start := s.now()
		if !c.AcceptedOn.IsZero() {
			start = c.AcceptedOn.Time
		}
		plan, err := api.Amortize(c.Amount, c.InterestRate, c.DurationMonths, start)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, plan.Schedule)
	})
}

func (s *Server) validateCredit(w http.ResponseWriter, r *http.Request) {
	var req api.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	errs := []string{}
	switch req.Type {
	case api.CreditPersonal:
		if req.Amount > 100000 {
			errs = append(errs, "Personal credit amount cannot exceed 100,000")
		}
		if req.DurationMonths > 60 {
			errs = append(errs, "Personal credit duration cannot exceed 60 months (5 years)")
		}
	case api.CreditRealEstate:
		if req.Amount > 1000000 {
			errs = append(errs, "Real estate credit amount cannot exceed 1,000,000")
		}
	}
	s.mu.Lock()
	_, known := s.clients[req.ClientID]
	s.mu.Unlock()
	if !known {
		errs = append(errs, "Client not found")
	}
	writeJSON(w, http.StatusOK, api.ValidationResult{Valid: len(errs) == 0, Errors: errs})
}

func (s *Server) searchCreditsByAmount(w http.ResponseWriter, r *http.Request) {
	lo, hasLo := queryFloat(r, "minAmount")
	hi, hasHi := queryFloat(r, "maxAmount")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.creditsWhereLocked(func(c *api.Credit) bool {
		return (!hasLo || c.Amount >= lo) && (!hasHi || c.Amount <= hi)
	}))
}

func (s *Server) searchCreditsByDate(w http.ResponseWriter, r *http.Request) {
	start, hasStart := queryDate(r, "startDate")
	end, hasEnd := queryDate(r, "endDate")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.creditsWhereLocked(func(c *api.Credit) bool {
		d := c.RequestedOn.Time
		return (!hasStart || !d.Before(start.Time)) && (!hasEnd || !d.After(end.Time))
	}))
}

func (s *Server) creditsByStatus(w http.ResponseWriter, r *http.Request) {
	status := api.CreditStatus(mux.Vars(r)["status"])
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.creditsWhereLocked(func(c *api.Credit) bool { return c.Status == status }))
}

func (s *Server) creditsByType(w http.ResponseWriter, r *http.Request) {
	typ := api.CreditType(mux.Vars(r)["type"])
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.creditsWhereLocked(func(c *api.Credit) bool { return c.Type == typ }))
}

func (s *Server) countCredits(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, len(s.credits))
}

func (s *Server) creditStatusSummary(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[api.CreditStatus]int{}
	for _, c := range s.credits {
		out[c.Status]++
	}
	writeJSON(w, http.StatusOK, out)
}

// repayments

func (s *Server) repaymentsWhereLocked(keep func(*api.Repayment) bool) []api.Repayment {
	out := []api.Repayment{}
	for _, id := range sortedIDs(s.repayments) {
		if rp := s.repayments[id]; keep == nil || keep(rp) {
			out = append(out, *rp)
		}
	}
	return out
}

func (s *Server) listRepayments(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.repaymentsWhereLocked(nil))
}

func (s *Server) addRepaymentLocked(creditID int64, amount float64, typ api.RepaymentType, on api.Date) *api.Repayment {
	if on.IsZero() {
		on = api.NewDate(s.now())
	}
	s.nextID++
	rp := &api.Repayment{ID: s.nextID, Date: on, Amount: amount, Type: typ, CreditID: creditID}
	s.repayments[rp.ID] = rp
	return rp
}

func (s *Server) createRepayment(w http.ResponseWriter, r *http.Request) {
	var req api.RepaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credits[req.CreditID]; !ok {
		writeError(w, http.StatusNotFound, "Credit not found")
		return
	}
	writeJSON(w, http.StatusCreated, s.addRepaymentLocked(req.CreditID, req.Amount, req.Type, req.Date))
}

func (s *Server) withRepayment(w http.ResponseWriter, r *http.Request, fn func(*api.Repayment)) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	rp, ok := s.repayments[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Remboursement not found")
		return
	}
	fn(rp)
}

func (s *Server) getRepayment(w http.ResponseWriter, r *http.Request) {
	s.withRepayment(w, r, func(rp *api.Repayment) { writeJSON(w, http.StatusOK, rp) })
}

func (s *Server) updateRepayment(w http.ResponseWriter, r *http.Request) {
	var req api.RepaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	s.withRepayment(w, r, func(rp *api.Repayment) {
		rp.Amount, rp.Type, rp.CreditID = req.Amount, req.Type, req.CreditID
		if !req.Date.IsZero() {
			rp.Date = req.Date
		}
		writeJSON(w, http.StatusOK, rp)
	})
}

func (s *Server) deleteRepayment(w http.ResponseWriter, r *http.Request) {
	s.withRepayment(w, r, func(rp *api.Repayment) {
		delete(s.repayments, rp.ID)
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) repaymentsByCredit(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.repaymentsWhereLocked(func(rp *api.Repayment) bool { return rp.CreditID == id }))
}

func (s *Server) repaymentsByType(w http.ResponseWriter, r *http.Request) {
	typ := api.RepaymentType(mux.Vars(r)["type"])
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.repaymentsWhereLocked(func(rp *api.Repayment) bool { return rp.Type == typ }))
}

func (s *Server) balanceLocked(c *api.Credit) api.RemainingBalance {
	m := api.MonthlyInstalment(c.Amount, c.InterestRate, c.DurationMonths)
	total := m * float64(c.DurationMonths)
	b := api.RemainingBalance{
		CreditID:          c.ID,
		InitialAmount:     c.Amount,
		TotalWithInterest: total,
		TotalInterest:     total - c.Amount,
	}
	for _, rp := range s.repayments {
		if rp.CreditID != c.ID {
			continue
		}
		b.Repaid += rp.Amount
		if rp.Type == api.RepaymentEarly {
			b.EarlyRepayments++
		} else {
			b.MonthlyPayments++
		}
	}
	b.Remaining = total - b.Repaid
	if b.Remaining < 0 {
		b.Remaining = 0
	}
	return b
}

func (s *Server) acceptedCreditLocked(w http.ResponseWriter, r *http.Request) (*api.Credit, bool) {
	id, ok := queryFloat(r, "creditId")
	if !ok {
		writeError(w, http.StatusBadRequest, "creditId is required")
		return nil, false
	}
	c, ok := s.credits[int64(id)]
	if !ok {
		writeError(w, http.StatusNotFound, "Credit not found")
		return nil, false
	}
	if c.Status != api.StatusAccepted {
		writeError(w, http.StatusBadRequest, "Repayments can only be made on accepted credits")
		return nil, false
	}
	return c, true
}

func (s *Server) earlyRepayment(w http.ResponseWriter, r *http.Request) {
	amount, ok := queryFloat(r, "amount")
	if !ok || amount <= 0 {
		writeError(w, http.StatusBadRequest, "Repayment amount must be positive")
		return
	}
	on, _ := queryDate(r, "date")
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.acceptedCreditLocked(w, r)
	if !ok {
		return
	}
	rp := s.addRepaymentLocked(c.ID, amount, api.RepaymentEarly, on)
	writeJSON(w, http.StatusOK, api.EarlyRepaymentResult{Repayment: *rp, Balance: s.balanceLocked(c)})
}

func (s *Server) monthlyInstallment(w http.ResponseWriter, r *http.Request) {
	on, _ := queryDate(r, "date")
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.acceptedCreditLocked(w, r)
	if !ok {
		return
	}
	m := api.MonthlyInstalment(c.Amount, c.InterestRate, c.DurationMonths)
	writeJSON(w, http.StatusOK, s.addRepaymentLocked(c.ID, m, api.RepaymentMonthly, on))
}

func (s *Server) remainingBalance(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credits[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Credit not found")
		return
	}
	writeJSON(w, http.StatusOK, s.balanceLocked(c))
}

func (s *Server) searchRepaymentsByAmount(w http.ResponseWriter, r *http.Request) {
	lo, hasLo := queryFloat(r, "minAmount")
	hi, hasHi := queryFloat(r, "maxAmount")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.repaymentsWhereLocked(func(rp *api.Repayment) bool {
		return (!hasLo || rp.Amount >= lo) && (!hasHi || rp.Amount <= hi)
	}))
}

func (s *Server) searchRepaymentsByDate(w http.ResponseWriter, r *http.Request) {
	start, hasStart := queryDate(r, "startDate")
	end, hasEnd := queryDate(r, "endDate")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.repaymentsWhereLocked(func(rp *api.Repayment) bool {
		d := rp.Date.Time
		return (!hasStart || !d.Before(start.Time)) && (!hasEnd || !d.After(end.Time))
	}))
}

// reporting

func (s *Server) summaryLocked(key func(*api.Credit) string, keys []string) api.Summary {
	out := api.Summary{Groups: map[string]api.SummaryGroup{}}
	for _, k := range keys {
		out.Groups[k] = api.SummaryGroup{Credits: []api.CreditSummary{}}
	}
	for _, id := range sortedIDs(s.credits) {
		c := s.credits[id]
		k := key(c)
		g := out.Groups[k]
		g.Credits = append(g.Credits, c.CreditSummary)
		g.Count++
		g.TotalAmount += c.Amount
		out.Groups[k] = g
		out.TotalCredits++
		out.TotalAmount += c.Amount
	}
	return out
}

func (s *Server) summaryByStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(api.CreditStatuses))
	for _, st := range api.CreditStatuses {
		keys = append(keys, string(st))
	}
	writeJSON(w, http.StatusOK, s.summaryLocked(func(c *api.Credit) string { return string(c.Status) }, keys))
}

func (s *Server) summaryByType(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(api.CreditTypes))
	for _, t := range api.CreditTypes {
		keys = append(keys, string(t))
	}
	writeJSON(w, http.StatusOK, s.summaryLocked(func(c *api.Credit) string { return string(c.Type) }, keys))
}
