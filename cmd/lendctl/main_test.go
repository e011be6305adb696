package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/MrEthical07/lendconsole"
	"github.com/MrEthical07/lendconsole/api"
	"github.com/MrEthical07/lendconsole/guard"
	"github.com/MrEthical07/lendconsole/internal/backendtest"
)

type cliHarness struct {
	t   *testing.T
	srv *backendtest.Server
	dir string
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	return &cliHarness{t: t, srv: backendtest.New(t), dir: t.TempDir()}
}

func (h *cliHarness) baseArgs() []string {
	return []string{
		"--config", filepath.Join(h.dir, "missing.yaml"),
		"--server", h.srv.URL,
		"--store", "file",
		"--store-path", filepath.Join(h.dir, "session.json"),
	}
}

// run executes lendctl with the harness globals followed by args.
func (h *cliHarness) run(stdin string, args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append(h.baseArgs(), args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	code, out, errOut := h.run("", args...)
	if code != 0 {
		h.t.Fatalf("lendctl %s: exit %d\nstdout: %s\nstderr: %s", strings.Join(args, " "), code, out, errOut)
	}
	return out
}

func (h *cliHarness) requestsTo(method, path string) int {
	n := 0
	for _, r := range h.srv.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command string
		rest    []string
		check   func(options) bool
		wantErr error
	}{
		{
			name:    "globals before command",
			args:    []string{"-s", "http://lend.test", "--json", "clients", "list"},
			command: "clients",
			rest:    []string{"list"},
			check:   func(o options) bool { return o.server == "http://lend.test" && o.jsonOutput },
		},
		{
			name:    "verbosity counts",
			args:    []string{"-vv", "whoami"},
			command: "whoami",
			rest:    []string{},
			check:   func(o options) bool { return o.verbosity == 2 },
		},
		{
			name:    "flags after command belong to it",
			args:    []string{"login", "-u", "alice"},
			command: "login",
			rest:    []string{"-u", "alice"},
			check:   func(o options) bool { return !o.jsonOutput },
		},
		{name: "no command", args: nil, wantErr: errShowUsage},
		{name: "help", args: []string{"--help"}, wantErr: errShowUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, command, rest, err := parseArgs(tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs: %v", err)
			}
			if command != tt.command {
				t.Fatalf("command = %q, want %q", command, tt.command)
			}
			if strings.Join(rest, " ") != strings.Join(tt.rest, " ") {
				t.Fatalf("rest = %v, want %v", rest, tt.rest)
			}
			if !tt.check(opts) {
				t.Fatalf("unexpected options %+v", opts)
			}
		})
	}

	if _, _, _, err := parseArgs([]string{"--bogus", "whoami"}); err == nil || errors.Is(err, errShowUsage) {
		t.Fatalf("expected unknown flag error, got %v", err)
	}
}

func TestVersionAndUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(context.Background(), []string{"version"}, strings.NewReader(""), &out, &errOut); code != 0 {
		t.Fatalf("version exit %d", code)
	}
	if !strings.HasPrefix(out.String(), "lendctl dev") {
		t.Fatalf("unexpected version output %q", out.String())
	}

	out.Reset()
	if code := run(context.Background(), nil, strings.NewReader(""), &out, &errOut); code != 1 {
		t.Fatalf("no args should exit 1, got %d", code)
	}
	if !strings.Contains(out.String(), "Usage: lendctl") {
		t.Fatalf("usage not printed: %q", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	code, _, errOut := h.run("", "frobnicate")
	if code != 1 || !strings.Contains(errOut, `unknown command "frobnicate"`) {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("login", "-u", "alice", "-p", "pw")
	if !strings.Contains(out, "Logged in as alice (ADMIN)") {
		t.Fatalf("unexpected login output %q", out)
	}

	var w whoami
	if err := json.Unmarshal([]byte(h.mustRun("--json", "whoami")), &w); err != nil {
		t.Fatalf("decode whoami: %v", err)
	}
	if w.Username != "alice" || w.Role != "ADMIN" || w.Server != h.srv.URL || w.ExpiresAt == nil {
		t.Fatalf("unexpected whoami %+v", w)
	}

	if out := h.mustRun("logout"); !strings.Contains(out, "Logged out") {
		t.Fatalf("unexpected logout output %q", out)
	}
	code, _, errOut := h.run("", "whoami")
	if code != 1 || !strings.Contains(errOut, "not authenticated") {
		t.Fatalf("whoami after logout: exit %d, stderr %q", code, errOut)
	}
	if out := h.mustRun("logout"); !strings.Contains(out, "No active session") {
		t.Fatalf("second logout output %q", out)
	}
}

func TestLoginPromptsForMissingValues(t *testing.T) {
	h := newHarness(t)
	code, out, errOut := h.run("bob\npw\n", "login")
	if code != 0 {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if !strings.Contains(errOut, "Username: ") || !strings.Contains(errOut, "Password: ") {
		t.Fatalf("prompts not shown: %q", errOut)
	}
	if !strings.Contains(out, "Logged in as bob (EMPLOYEE)") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLoginRejected(t *testing.T) {
	h := newHarness(t)
	code, _, errOut := h.run("", "login", "-u", "alice", "-p", "wrong")
	if code != 1 || !strings.Contains(errOut, "error: Invalid username or password") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if code, _, _ := h.run("", "whoami"); code != 1 {
		t.Fatal("rejected login left a session behind")
	}
}

func TestGuardedCommandNeedsSession(t *testing.T) {
	h := newHarness(t)
	code, _, errOut := h.run("", "clients", "list")
	if code != 1 || !strings.Contains(errOut, "not authenticated") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if n := h.requestsTo(http.MethodGet, "/api/clients"); n != 0 {
		t.Fatalf("guarded command reached the API %d times", n)
	}
}

func TestReviewRouteRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	clientID := h.srv.SeedClient("Jean Dupont", "jean@example.com")
	creditID := h.srv.SeedCredit(clientID, api.CreditRequest{
		Type: api.CreditPersonal, Amount: 5000, DurationMonths: 12, InterestRate: 4, Purpose: "car",
	}, api.StatusPending)

	h.mustRun("login", "-u", "bob", "-p", "pw")
	code, _, errOut := h.run("", "credits", "approve", itoa(creditID))
	if code != 1 || !strings.Contains(errOut, guard.DeniedNotice) {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if n := h.requestsTo(http.MethodPut, "/api/credits/"+itoa(creditID)+"/approve"); n != 0 {
		t.Fatalf("denied command reached the API %d times", n)
	}
	if _, _, errOut := h.run("", "whoami"); strings.Contains(errOut, "not authenticated") {
		t.Fatal("denied route ended the session")
	}
}

func TestAdminCreditWorkflow(t *testing.T) {
	h := newHarness(t)
	clientID := h.srv.SeedClient("Jean Dupont", "jean@example.com")
	h.mustRun("login", "-u", "alice", "-p", "pw")

	var clients []api.Borrower
	if err := json.Unmarshal([]byte(h.mustRun("--json", "clients", "list")), &clients); err != nil {
		t.Fatalf("decode clients: %v", err)
	}
	if len(clients) != 1 || clients[0].Name != "Jean Dupont" {
		t.Fatalf("unexpected clients %+v", clients)
	}

	var created api.Credit
	out := h.mustRun("--json", "credits", "create",
		"--type", "personnel", "--amount", "10000", "--months", "12", "--rate", "5",
		"--client", itoa(clientID), "--purpose", "car")
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode credit: %v", err)
	}
	if created.ID == 0 || created.Status != api.StatusPending {
		t.Fatalf("unexpected credit %+v", created)
	}

	out = h.mustRun("credits", "approve", itoa(created.ID), "--date", "2026-01-15")
	if !strings.Contains(out, "is now ACCEPTE") {
		t.Fatalf("unexpected approve output %q", out)
	}

	out = h.mustRun("credits", "list", "--status", "accepte")
	if !strings.Contains(out, "ACCEPTE") || !strings.Contains(out, "10000.00") {
		t.Fatalf("unexpected list output %q", out)
	}

	out = h.mustRun("credits", "schedule", itoa(created.ID), "--local")
	if lines := strings.Count(out, "\n"); lines != 14 {
		t.Fatalf("expected header, divider and 12 rows, got %d lines:\n%s", lines, out)
	}
}

func TestForbiddenResponseKeepsSession(t *testing.T) {
	h := newHarness(t)
	clientID := h.srv.SeedClient("Jean Dupont", "jean@example.com")
	h.mustRun("login", "-u", "bob", "-p", "pw")

	code, _, errOut := h.run("", "clients", "delete", itoa(clientID))
	if code != 1 {
		t.Fatalf("expected failure, got exit 0")
	}
	if !strings.Contains(errOut, "notice: "+lendconsole.NoticeForbidden) {
		t.Fatalf("forbidden notice missing: %q", errOut)
	}
	if !strings.Contains(errOut, "error: "+api.MsgForbidden) {
		t.Fatalf("forbidden message missing: %q", errOut)
	}
	if out := h.mustRun("whoami"); !strings.Contains(out, "bob") {
		t.Fatalf("session lost after 403: %q", out)
	}
}

func TestRevokedTokenEndsSession(t *testing.T) {
	h := newHarness(t)
	h.mustRun("login", "-u", "alice", "-p", "pw")
	h.mustRun("clients", "list")

	var auth string
	for _, r := range h.srv.Requests() {
		if r.Path == "/api/clients" {
			auth = r.Authorization
		}
	}
	if auth == "" {
		t.Fatal("no authorized request recorded")
	}
	h.srv.Revoke(auth)

	code, _, errOut := h.run("", "clients", "list")
	if code != 1 || !strings.Contains(errOut, "notice: "+lendconsole.NoticeSessionExpired) {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	code, _, errOut = h.run("", "whoami")
	if code != 1 || !strings.Contains(errOut, "not authenticated") {
		t.Fatalf("session survived a 401: exit %d, stderr %q", code, errOut)
	}
}

func TestServerErrorKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.mustRun("login", "-u", "alice", "-p", "pw")
	h.srv.Force("/api/credits/count", http.StatusInternalServerError)

	code, _, errOut := h.run("", "credits", "count")
	if code != 1 || !strings.Contains(errOut, api.MsgServer) {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	h.mustRun("whoami")
}

func TestMetricsFlag(t *testing.T) {
	h := newHarness(t)
	code, _, errOut := h.run("", "--metrics", "login", "-u", "alice", "-p", "pw")
	if code != 0 {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if !strings.Contains(errOut, "lendconsole_login_success_total 1") {
		t.Fatalf("metrics not printed: %q", errOut)
	}
}

func TestAuditLog(t *testing.T) {
	h := newHarness(t)
	logPath := filepath.Join(h.dir, "audit.jsonl")
	h.mustRun("--audit-log", logPath, "login", "-u", "alice", "-p", "pw")
	h.mustRun("--audit-log", logPath, "logout")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	var types []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev lendconsole.AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		types = append(types, ev.EventType)
		if ev.EventType == lendconsole.AuditLoginSuccess && ev.Metadata["origin"] != "lendctl login" {
			t.Fatalf("unexpected origin %q", ev.Metadata["origin"])
		}
	}
	if !contains(types, lendconsole.AuditLoginSuccess) || !contains(types, lendconsole.AuditLogout) {
		t.Fatalf("unexpected audit events %v", types)
	}
	if strings.Contains(string(data), `"pw"`) {
		t.Fatal("audit log contains the password")
	}
}

func TestRoutesCommand(t *testing.T) {
	h := newHarness(t)

	access := func() map[string]bool {
		var routes []routeAccess
		if err := json.Unmarshal([]byte(h.mustRun("--json", "routes")), &routes); err != nil {
			t.Fatalf("decode routes: %v", err)
		}
		m := map[string]bool{}
		for _, r := range routes {
			m[r.Pattern] = r.Allowed
		}
		return m
	}

	anon := access()
	if !anon[routeLogin] || anon[routeDashboard] || anon[routeReview] {
		t.Fatalf("unexpected anonymous access %v", anon)
	}

	h.mustRun("login", "-u", "bob", "-p", "pw")
	emp := access()
	if !emp[routeDashboard] || emp[routeReview] {
		t.Fatalf("unexpected employee access %v", emp)
	}
}

func TestLoadRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	doc := "routes:\n  - pattern: /auth/login\n    public: true\n  - pattern: /dashboard\n    roles: [ADMIN]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	routes, err := loadRoutes(path)
	if err != nil {
		t.Fatalf("loadRoutes: %v", err)
	}
	if len(routes) != 2 || !routes[0].Public || routes[1].Roles[0] != "ADMIN" {
		t.Fatalf("unexpected routes %+v", routes)
	}

	if err := os.WriteFile(path, []byte("routes: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadRoutes(path); err == nil {
		t.Fatal("expected error for empty route table")
	}
	if routes, err := loadRoutes(""); err != nil || len(routes) != len(defaultRoutes()) {
		t.Fatalf("default routes: %v %d", err, len(routes))
	}
}

func TestRenderTableIgnoresColorCodes(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, []string{"ID", "STATUS"}, [][]string{
		{"1", colorStatus(api.StatusAccepted, true)},
		{"22", "EN_COURS"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", buf.String())
	}
	if lines[1] != "--  --------" {
		t.Fatalf("unexpected divider %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "1   ") {
		t.Fatalf("unexpected padding %q", lines[2])
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestEnterWithoutSessionIsNotAuthenticated(t *testing.T) {
	h := newHarness(t)
	opts, _, _, err := parseArgs(append(h.baseArgs(), "clients"))
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	var stdout, stderr bytes.Buffer
	a, err := newApp(opts, strings.NewReader(""), &stdout, &stderr)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	if err := a.enter(context.Background(), routeClients); !errors.Is(err, lendconsole.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := a.runWhoami(context.Background(), nil); !errors.Is(err, lendconsole.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated from whoami, got %v", err)
	}
}
