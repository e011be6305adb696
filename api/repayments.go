package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const repaymentsPath = "/api/remboursements"

// RepaymentService binds /api/remboursements.
type RepaymentService struct{ c *Client }

func (s RepaymentService) List(ctx context.Context) ([]Repayment, error) {
	return s.list(ctx, repaymentsPath, nil)
}

func (s RepaymentService) Get(ctx context.Context, id int64) (*Repayment, error) {
	var out Repayment
	if err := s.c.doJSON(ctx, http.MethodGet, idPath(repaymentsPath, id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s RepaymentService) Create(ctx context.Context, req RepaymentRequest) (*Repayment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Repayment
	if err := s.c.doJSON(ctx, http.MethodPost, repaymentsPath, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s RepaymentService) Update(ctx context.Context, id int64, req RepaymentRequest) (*Repayment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Repayment
	if err := s.c.doJSON(ctx, http.MethodPut, idPath(repaymentsPath, id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s RepaymentService) Delete(ctx context.Context, id int64) error {
	return s.c.doJSON(ctx, http.MethodDelete, idPath(repaymentsPath, id), nil, nil, nil)
}

// ByCredit lists the repayments recorded against a credit.
func (s RepaymentService) ByCredit(ctx context.Context, creditID int64) ([]Repayment, error) {
	return s.list(ctx, idPath(repaymentsPath+"/credit", creditID), nil)
}

func (s RepaymentService) ByType(ctx context.Context, typ RepaymentType) ([]Repayment, error) {
	return s.list(ctx, repaymentsPath+"/type/"+url.PathEscape(string(typ)), nil)
}

// Early records an early repayment. A zero date lets the server use today.
func (s RepaymentService) Early(ctx context.Context, creditID int64, amount float64, on Date) (*EarlyRepaymentResult, error) {
	if creditID <= 0 || amount <= 0 {
		var p problems
		if creditID <= 0 {
			p.addf("credit id is required")
		}
		if amount <= 0 {
			p.addf("amount must be positive")
		}
		return nil, p.err()
	}
	q := url.Values{
		"creditId": {strconv.FormatInt(creditID, 10)},
		"amount":   {strconv.FormatFloat(amount, 'f', -1, 64)},
	}
	if !on.IsZero() {
		q.Set("date", on.String())
	}
	var out EarlyRepaymentResult
	if err := s.c.doJSON(ctx, http.MethodPost, repaymentsPath+"/early-repayment", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Installment records the next scheduled monthly instalment.
func (s RepaymentService) Installment(ctx context.Context, creditID int64, on Date) (*Repayment, error) {
	if creditID <= 0 {
		return nil, problems{"credit id is required"}.err()
	}
	q := url.Values{"creditId": {strconv.FormatInt(creditID, 10)}}
	if !on.IsZero() {
		q.Set("date", on.String())
	}
	var out Repayment
	if err := s.c.doJSON(ctx, http.MethodPost, repaymentsPath+"/monthly-installment", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s RepaymentService) RemainingBalance(ctx context.Context, creditID int64) (*RemainingBalance, error) {
	var out RemainingBalance
	if err := s.c.doJSON(ctx, http.MethodGet, idPath(repaymentsPath+"/remaining-balance", creditID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s RepaymentService) SearchByDate(ctx context.Context, start, end Date) ([]Repayment, error) {
	return s.list(ctx, repaymentsPath+"/search/date", dateRangeQuery(start, end))
}

func (s RepaymentService) SearchByAmount(ctx context.Context, lo, hi *float64) ([]Repayment, error) {
	return s.list(ctx, repaymentsPath+"/search/amount", amountQuery(lo, hi))
}

func (s RepaymentService) list(ctx context.Context, path string, q url.Values) ([]Repayment, error) {
	var out []Repayment
	if err := s.c.doJSON(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
