// Package backendtest runs an in-memory lending API over httptest for
// tests of the console and its REST bindings.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/MrEthical07/lendconsole/api"
	"github.com/MrEthical07/lendconsole/token"
	"github.com/MrEthical07/lendconsole/transport"
)

// SigningKey signs every token the fake backend issues.
var SigningKey = []byte("backendtest-signing-key-0123456789abcdef")

// User is an account known to the fake backend.
type User struct {
	Username string
	Password string
	Role     string
	Email    string
	FullName string
}

// Request is a recorded inbound request.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

// Server is a fake lending API.
type Server struct {
	*httptest.Server

	Issuer *token.Issuer

	mu         sync.Mutex
	users      map[string]User
	revoked    map[string]bool
	clients    map[int64]*api.Borrower
	credits    map[int64]*api.Credit
	repayments map[int64]*api.Repayment
	nextID     int64
	forced     map[string]int
	loginHook  func(*api.AuthResponse)
	requests   []Request
	now        func() time.Time
}

// Option configures a [Server].
type Option func(*Server)

// WithUser registers an account.
func WithUser(u User) Option {
	return func(s *Server) { s.users[u.Username] = u }
}

// WithLoginHook lets a test rewrite login responses before they are sent.
func WithLoginHook(fn func(*api.AuthResponse)) Option {
	return func(s *Server) { s.loginHook = fn }
}

// WithClock fixes the server clock used for issuing tokens and dating
// records.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New starts a server with two accounts: alice (ADMIN, password "pw") and
// bob (EMPLOYEE, password "pw"). It is closed when t finishes.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		users: map[string]User{
			"alice": {Username: "alice", Password: "pw", Role: "ADMIN", Email: "alice@bank.test", FullName: "Alice Admin"},
			"bob":   {Username: "bob", Password: "pw", Role: "EMPLOYEE", Email: "bob@bank.test", FullName: "Bob Employee"},
		},
		revoked:    map[string]bool{},
		clients:    map[int64]*api.Borrower{},
		credits:    map[int64]*api.Credit{},
		repayments: map[int64]*api.Repayment{},
		forced:     map[string]int{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	iss, err := token.NewIssuer(token.IssuerConfig{
		Key:    SigningKey,
		TTL:    time.Hour,
		Issuer: "backendtest",
		Now:    s.now,
	})
	if err != nil {
		t.Fatalf("backendtest issuer: %v", err)
	}
	s.Issuer = iss
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// Force makes every request to path answer status until cleared with 0.
func (s *Server) Force(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.forced, path)
		return
	}
	s.forced[path] = status
}

// Revoke makes the server reject tok with 401.
func (s *Server) Revoke(tok string) {
	s.mu.Lock()
	s.revoked[token.Strip(tok)] = true
	s.mu.Unlock()
}

// Requests returns a copy of the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// SeedClient stores a client and returns its id.
func (s *Server) SeedClient(name, email string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.clients[s.nextID] = &api.Borrower{ID: s.nextID, Name: name, Email: email}
	return s.nextID
}

// SeedCredit stores a credit for clientID and returns its id.
func (s *Server) SeedCredit(clientID int64, req api.CreditRequest, status api.CreditStatus) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.ClientID = clientID
	c := s.newCreditLocked(req)
	c.Status = status
	if status == api.StatusAccepted {
		c.AcceptedOn = api.NewDate(s.now())
	}
	return c.ID
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record)

	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)

	a := r.PathPrefix("/api").Subrouter()
	a.Use(s.authenticate)

	a.HandleFunc("/clients", s.listClients).Methods(http.MethodGet)
	a.HandleFunc("/clients", s.createClient).Methods(http.MethodPost)
	a.HandleFunc("/clients/search/name", s.searchClients("name")).Methods(http.MethodGet)
	a.HandleFunc("/clients/search/email", s.searchClients("email")).Methods(http.MethodGet)
	a.HandleFunc("/clients/{id:[0-9]+}", s.getClient).Methods(http.MethodGet)
	a.HandleFunc("/clients/{id:[0-9]+}", s.updateClient).Methods(http.MethodPut)
	a.HandleFunc("/clients/{id:[0-9]+}", s.adminOnly(s.deleteClient)).Methods(http.MethodDelete)
	a.HandleFunc("/clients/{id:[0-9]+}/credits", s.clientCredits).Methods(http.MethodGet)

	a.HandleFunc("/credits", s.listCredits).Methods(http.MethodGet)
	a.HandleFunc("/credits", s.createCredit).Methods(http.MethodPost)
	a.HandleFunc("/credits/count", s.countCredits).Methods(http.MethodGet)
	a.HandleFunc("/credits/status-summary", s.creditStatusSummary).Methods(http.MethodGet)
	a.HandleFunc("/credits/validate", s.validateCredit).Methods(http.MethodPost)
	a.HandleFunc("/credits/search/amount", s.searchCreditsByAmount).Methods(http.MethodGet)
	a.HandleFunc("/credits/search/date", s.searchCreditsByDate).Methods(http.MethodGet)
	a.HandleFunc("/credits/status/{status}", s.creditsByStatus).Methods(http.MethodGet)
	a.HandleFunc("/credits/type/{type}", s.creditsByType).Methods(http.MethodGet)
	a.HandleFunc("/credits/{id:[0-9]+}", s.getCredit).Methods(http.MethodGet)
	a.HandleFunc("/credits/{id:[0-9]+}", s.updateCredit).Methods(http.MethodPut)
	a.HandleFunc("/credits/{id:[0-9]+}", s.adminOnly(s.deleteCredit)).Methods(http.MethodDelete)
	a.HandleFunc("/credits/{id:[0-9]+}/approve", s.adminOnly(s.approveCredit)).Methods(http.MethodPut)
	a.HandleFunc("/credits/{id:[0-9]+}/reject", s.adminOnly(s.rejectCredit)).Methods(http.MethodPut)
	a.HandleFunc("/credits/{id:[0-9]+}/statut", s.adminOnly(s.setCreditStatus)).Methods(http.MethodPatch)
	a.HandleFunc("/credits/{id:[0-9]+}/monthly-payment", s.monthlyPayment).Methods(http.MethodGet)
	a.HandleFunc("/credits/{id:[0-9]+}/payment-schedule", s.paymentSchedule).Methods(http.MethodGet)

	a.HandleFunc("/remboursements", s.listRepayments).Methods(http.MethodGet)
	a.HandleFunc("/remboursements", s.createRepayment).Methods(http.MethodPost)
	a.HandleFunc("/remboursements/early-repayment", s.earlyRepayment).Methods(http.MethodPost)
	a.HandleFunc("/remboursements/monthly-installment", s.monthlyInstallment).Methods(http.MethodPost)
	a.HandleFunc("/remboursements/search/amount", s.searchRepaymentsByAmount).Methods(http.MethodGet)
	a.HandleFunc("/remboursements/search/date", s.searchRepaymentsByDate).Methods(http.MethodGet)
	a.HandleFunc("/remboursements/credit/{id:[0-9]+}", s.repaymentsByCredit).Methods(http.MethodGet)
	a.HandleFunc("/remboursements/type/{type}", s.repaymentsByType).Methods(http.MethodGet)
	a.HandleFunc("/remboursements/remaining-balance/{id:[0-9]+}", s.remainingBalance).Methods(http.MethodGet)
	a.HandleFunc("/remboursements/{id:[0-9]+}", s.getRepayment).Methods(http.MethodGet)
	a.HandleFunc("/remboursements/{id:[0-9]+}", s.updateRepayment).Methods(http.MethodPut)
	a.HandleFunc("/remboursements/{id:[0-9]+}", s.adminOnly(s.deleteRepayment)).Methods(http.MethodDelete)

	a.HandleFunc("/reporting/credits/summary-by-status", s.summaryByStatus).Methods(http.MethodGet)
	a.HandleFunc("/reporting/credits/summary-by-type", s.summaryByType).Methods(http.MethodGet)
	return r
}

type claimsKey struct{}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get(transport.RequestIDHeader),
		})
		status, forced := s.forced[r.URL.Path]
		s.mu.Unlock()
		if forced {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := transport.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "Full authentication is required to access this resource")
			return
		}
		s.mu.Lock()
		revoked := s.revoked[raw]
		s.mu.Unlock()
		claims, err := s.Issuer.Verify(raw)
		if err != nil || revoked {
			writeError(w, http.StatusUnauthorized, "JWT token is invalid or expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func (s *Server) adminOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil || claims.Role != "ADMIN" {
			writeError(w, http.StatusForbidden, "Access Denied")
			return
		}
		h(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	s.mu.Lock()
	u, ok := s.users[req.Username]
	hook := s.loginHook
	s.mu.Unlock()
	if !ok || u.Password != req.Password {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Invalid username or password"))
		return
	}
	tok, err := s.Issuer.Issue(u.Username, u.Role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := &api.AuthResponse{Token: tok, TokenType: "Bearer", Username: u.Username, Role: u.Role}
	if hook != nil {
		hook(resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == req.Username {
			writeText(w, http.StatusBadRequest, "Username is already taken")
			return
		}
		if u.Email == req.Email {
			writeText(w, http.StatusBadRequest, "Email is already in use")
			return
		}
	}
	role := req.Role
	if role == "" {
		role = "ROLE_CLIENT"
	}
	s.users[req.Username] = User{Username: req.Username, Password: req.Password, Role: role, Email: req.Email, FullName: req.FullName}
	writeText(w, http.StatusOK, "User registered successfully")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"status":  status,
		"error":   http.StatusText(status),
		"message": msg,
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

func queryFloat(r *http.Request, key string) (float64, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func queryDate(r *http.Request, key string) (api.Date, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return api.Date{}, false
	}
	d, err := api.ParseDate(v)
	return d, err == nil
}
