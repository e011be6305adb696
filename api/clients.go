package api

import (
	"context"
	"net/http"
	"net/url"
)

const clientsPath = "/api/clients"

// ClientService binds /api/clients.
type ClientService struct{ c *Client }

func (s ClientService) List(ctx context.Context) ([]Borrower, error) {
	var out []Borrower
	if err := s.c.doJSON(ctx, http.MethodGet, clientsPath, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s ClientService) Get(ctx context.Context, id int64) (*Borrower, error) {
	var out Borrower
	if err := s.c.doJSON(ctx, http.MethodGet, idPath(clientsPath, id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s ClientService) Create(ctx context.Context, b Borrower) (*Borrower, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.ID, b.Credits = 0, nil
	var out Borrower
	if err := s.c.doJSON(ctx, http.MethodPost, clientsPath, nil, b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s ClientService) Update(ctx context.Context, id int64, b Borrower) (*Borrower, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.ID, b.Credits = id, nil
	var out Borrower
	if err := s.c.doJSON(ctx, http.MethodPut, idPath(clientsPath, id), nil, b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s ClientService) Delete(ctx context.Context, id int64) error {
	return s.c.doJSON(ctx, http.MethodDelete, idPath(clientsPath, id), nil, nil, nil)
}

// Credits lists the credits held by client id.
func (s ClientService) Credits(ctx context.Context, id int64) ([]CreditSummary, error) {
	var out []CreditSummary
	if err := s.c.doJSON(ctx, http.MethodGet, idPath(clientsPath, id, "credits"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchByName matches clients whose name contains name.
func (s ClientService) SearchByName(ctx context.Context, name string) ([]Borrower, error) {
	var out []Borrower
	q := url.Values{"name": {name}}
	if err := s.c.doJSON(ctx, http.MethodGet, clientsPath+"/search/name", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchByEmail matches clients by email.
func (s ClientService) SearchByEmail(ctx context.Context, email string) ([]Borrower, error) {
	var out []Borrower
	q := url.Values{"email": {email}}
	if err := s.c.doJSON(ctx, http.MethodGet, clientsPath+"/search/email", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
