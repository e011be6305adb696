package api

import (
	"context"
	"net/http"
)

// ReportingService binds /api/reporting.
type ReportingService struct{ c *Client }

// CreditsByStatus groups all credits by status.
func (s ReportingService) CreditsByStatus(ctx context.Context) (*Summary, error) {
	var out Summary
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/reporting/credits/summary-by-status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreditsByType groups all credits by product type.
func (s ReportingService) CreditsByType(ctx context.Context) (*Summary, error) {
	var out Summary
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/reporting/credits/summary-by-type", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
