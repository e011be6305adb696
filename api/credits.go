package api

import (
	"context"
	"net/http"
	"net/url"
)

const creditsPath = "/api/credits"

// CreditService binds /api/credits.
type CreditService struct{ c *Client }

func (s CreditService) List(ctx context.Context) ([]CreditSummary, error) {
	return s.list(ctx, creditsPath, nil)
}

func (s CreditService) Get(ctx context.Context, id int64) (*Credit, error) {
	var out Credit
	if err := s.c.doJSON(ctx, http.MethodGet, idPath(creditsPath, id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s CreditService) Create(ctx context.Context, req CreditRequest) (*Credit, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Credit
	if err := s.c.doJSON(ctx, http.MethodPost, creditsPath, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s CreditService) Update(ctx context.Context, id int64, req CreditRequest) (*Credit, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Credit
	if err := s.c.doJSON(ctx, http.MethodPut, idPath(creditsPath, id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s CreditService) Delete(ctx context.Context, id int64) error {
	return s.c.doJSON(ctx, http.MethodDelete, idPath(creditsPath, id), nil, nil, nil)
}

func (s CreditService) ByStatus(ctx context.Context, status CreditStatus) ([]CreditSummary, error) {
	return s.list(ctx, creditsPath+"/status/"+url.PathEscape(string(status)), nil)
}

func (s CreditService) ByType(ctx context.Context, typ CreditType) ([]CreditSummary, error) {
	return s.list(ctx, creditsPath+"/type/"+url.PathEscape(string(typ)), nil)
}

// Approve accepts a credit. A zero approvedOn lets the server use today.
func (s CreditService) Approve(ctx context.Context, id int64, approvedOn Date) (*Credit, error) {
	q := url.Values{}
	if !approvedOn.IsZero() {
		q.Set("approvalDate", approvedOn.String())
	}
	var out Credit
	if err := s.c.doJSON(ctx, http.MethodPut, idPath(creditsPath, id, "approve"), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reject refuses a credit with an optional reason.
func (s CreditService) Reject(ctx context.Context, id int64, reason string) (*Credit, error) {
	q := url.Values{}
	if reason != "" {
		q.Set("reason", reason)
	}
	var out Credit
	if err := s.c.doJSON(ctx, http.MethodPut, idPath(creditsPath, id, "reject"), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetStatus forces a credit's status.
func (s CreditService) SetStatus(ctx context.Context, id int64, status CreditStatus) (*Credit, error) {
	var out Credit
	body := map[string]CreditStatus{"statut": status}
	if err := s.c.doJSON(ctx, http.MethodPatch, idPath(creditsPath, id, "statut"), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s CreditService) MonthlyPayment(ctx context.Context, id int64) (*MonthlyPayment, error) {
	var out MonthlyPayment
	if err := s.c.doJSON(ctx, http.MethodGet, idPath(creditsPath, id, "monthly-payment"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s CreditService) Schedule(ctx context.Context, id int64) ([]ScheduleEntry, error) {
	var out []ScheduleEntry
	if err := s.c.doJSON(ctx, http.MethodGet, idPath(creditsPath, id, "payment-schedule"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate runs the server-side eligibility check. Local validation runs
// first.
func (s CreditService) Validate(ctx context.Context, req CreditRequest) (*ValidationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out ValidationResult
	if err := s.c.doJSON(ctx, http.MethodPost, creditsPath+"/validate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchByAmount lists credits within [lo, hi]. Either bound may be nil.
func (s CreditService) SearchByAmount(ctx context.Context, lo, hi *float64) ([]CreditSummary, error) {
	return s.list(ctx, creditsPath+"/search/amount", amountQuery(lo, hi))
}

// SearchByDate lists credits requested within [start, end]. Zero dates are
// open bounds.
func (s CreditService) SearchByDate(ctx context.Context, start, end Date) ([]CreditSummary, error) {
	return s.list(ctx, creditsPath+"/search/date", dateRangeQuery(start, end))
}

func (s CreditService) Count(ctx context.Context) (int, error) {
	var out int
	if err := s.c.doJSON(ctx, http.MethodGet, creditsPath+"/count", nil, nil, &out); err != nil {
		return 0, err
	}
	return out, nil
}

// StatusSummary returns the number of credits per status.
func (s CreditService) StatusSummary(ctx context.Context) (map[CreditStatus]int, error) {
	out := map[CreditStatus]int{}
	if err := s.c.doJSON(ctx, http.MethodGet, creditsPath+"/status-summary", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s CreditService) list(ctx context.Context, path string, q url.Values) ([]CreditSummary, error) {
	var out []CreditSummary
	if err := s.c.doJSON(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
