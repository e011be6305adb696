package lendconsole

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/MrEthical07/lendconsole/api"
	"github.com/MrEthical07/lendconsole/guard"
	"github.com/MrEthical07/lendconsole/store"
	"github.com/MrEthical07/lendconsole/token"
	"github.com/MrEthical07/lendconsole/transport"
)

// Manager owns the console session: the persisted credential, the cached
// profile and the in-memory [Session] published to subscribers. It is safe
// for concurrent use. Build one with [New].
type Manager struct {
	cfg   Config
	store store.Store
	nav   Navigator
	log   logr.Logger
	now   func() time.Time

	httpClient *http.Client
	api        *api.Client

	metrics *Metrics
	audit   *auditDispatcher

	// mu serialises state commits: persist and publish happen together.
	mu    sync.Mutex
	state *broadcast

	closers []io.Closer
}

// endReason describes why a session is being torn down.
type endReason int

const (
	endLogout endReason = iota
	endForced
	endExpired
	endMissing
	endCorrupt
)

// Login authenticates against the lending API and makes the result the
// active session, replacing any previous one.
//
// A rejected login returns the API error unchanged and leaves persisted
// state untouched. A reply missing the token, username or role yields
// [ErrIncompleteResponse], as does a token that is malformed or already
// expired; nothing is persisted in either case. If persisting fails half-way the previous
// credential and profile are restored and an error wrapping [ErrPersist]
// is returned.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	resp, err := m.api.Auth().Login(ctx, username, password)
	if err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, AuditLoginFailure, false, username, "", err)
		m.log.V(1).Info("login rejected", "username", username, "error", api.Message(err))
		return Session{}, err
	}

	raw := strings.TrimSpace(resp.Token)
	sess := Session{
		Username: resp.Username,
		Role:     Role(resp.Role),
		Token:    token.Strip(raw),
	}
	reject := func(err error) (Session, error) {
		m.metrics.Inc(MetricLoginIncomplete)
		m.emitAudit(ctx, AuditLoginFailure, false, username, resp.Role, err)
		m.log.Info("login response unusable", "username", username, "error", err.Error())
		return Session{}, err
	}
	if sess.Token == "" || sess.Username == "" || sess.Role == "" {
		return reject(ErrIncompleteResponse)
	}
	md, err := token.Inspect(sess.Token)
	if err != nil {
		return reject(fmt.Errorf("%w: %w", ErrIncompleteResponse, err))
	}
	if md.Expired(m.now(), m.cfg.Session.Leeway) {
		return reject(fmt.Errorf("%w: credential expired at %s", ErrIncompleteResponse, md.ExpiresAt.UTC().Format(time.RFC3339)))
	}

	doc, err := json.Marshal(profile{
		Username:  sess.Username,
		Role:      sess.Role,
		Token:     sess.Token,
		TokenType: resp.TokenType,
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if err := m.commit(context.WithoutCancel(ctx), raw, string(doc), sess); err != nil {
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, AuditLoginFailure, false, sess.Username, string(sess.Role), err)
		m.log.Error(err, "persist session", "username", sess.Username)
		return Session{}, err
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.emitAudit(ctx, AuditLoginSuccess, true, sess.Username, string(sess.Role), nil)
	m.log.V(1).Info("logged in", "username", sess.Username, "role", sess.Role)
	return sess, nil
}

func (m *Manager) commit(ctx context.Context, raw, doc string, sess Session) error {
	tokenKey, profileKey := m.cfg.Session.TokenKey, m.cfg.Session.ProfileKey

	m.mu.Lock()
	defer m.mu.Unlock()

	prevToken, prevTokenErr := m.store.Get(ctx, tokenKey)
	prevProfile, prevProfileErr := m.store.Get(ctx, profileKey)

	if err := m.store.Set(ctx, tokenKey, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := m.store.Set(ctx, profileKey, doc); err != nil {
		m.restore(ctx, tokenKey, prevToken, prevTokenErr)
		m.restore(ctx, profileKey, prevProfile, prevProfileErr)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	m.state.publish(&sess)
	return nil
}

// restore puts key back to the value read before a failed commit.
func (m *Manager) restore(ctx context.Context, key, prev string, readErr error) {
	var err error
	switch {
	case readErr == nil:
		err = m.store.Set(ctx, key, prev)
	case errors.Is(readErr, store.ErrNotFound):
		err = m.store.Remove(ctx, key)
	default:
		err = readErr
	}
	if err != nil {
		m.log.Error(err, "restore previous session value", "key", key)
	}
}

// Logout clears the credential and profile, publishes the empty session
// and navigates to the login route. Store failures are logged, never
// returned.
func (m *Manager) Logout(ctx context.Context) {
	m.endSession(ctx, endLogout)
}

func (m *Manager) endSession(ctx context.Context, reason endReason) {
	ctx = context.WithoutCancel(ctx)

	m.mu.Lock()
	prev := m.clearLocked(ctx)
	m.mu.Unlock()

	m.recordEnd(ctx, reason, prev)
	m.nav.Navigate(m.cfg.Session.LoginRoute, endNotice(reason))
}

// clearLocked removes both keys and publishes no session. It returns the
// session that was active, if any. m.mu must be held.
func (m *Manager) clearLocked(ctx context.Context) *Session {
	for _, key := range []string{m.cfg.Session.TokenKey, m.cfg.Session.ProfileKey} {
		if err := m.store.Remove(ctx, key); err != nil {
			m.log.Error(err, "remove session value", "key", key)
		}
	}
	prev := m.state.get()
	m.state.publish(nil)
	return prev
}

func (m *Manager) recordEnd(ctx context.Context, reason endReason, prev *Session) {
	var username, role string
	if prev != nil {
		username, role = prev.Username, string(prev.Role)
	}

	switch reason {
	case endLogout:
		m.metrics.Inc(MetricLogout)
		m.emitAudit(ctx, AuditLogout, true, username, role, nil)
		m.log.V(1).Info("logged out", "username", username)
	case endForced:
		m.metrics.Inc(MetricForcedLogout)
		m.emitAudit(ctx, AuditForcedLogout, true, username, role, api.ErrUnauthorized)
		m.log.Info("session rejected by server, logged out", "username", username)
	case endExpired:
		m.metrics.Inc(MetricSessionExpired)
		m.emitAudit(ctx, AuditSessionExpired, true, username, role, nil)
		m.log.V(1).Info("stored session expired")
	case endCorrupt:
		m.metrics.Inc(MetricSessionCorrupt)
		m.emitAudit(ctx, AuditSessionExpired, false, username, role, errCorruptSession)
		m.log.Info("stored session unreadable, discarded")
	case endMissing:
		m.log.V(2).Info("no stored session")
	}
}

func endNotice(reason endReason) string {
	switch reason {
	case endForced, endExpired:
		return NoticeSessionExpired
	default:
		return ""
	}
}

var errCorruptSession = errors.New("corrupt stored session")

// CheckAuthState restores the session from the store, typically at
// startup. A present, unexpired credential with a readable profile is
// published and returned; anything else ends in [Manager.Logout].
func (m *Manager) CheckAuthState(ctx context.Context) (Session, bool) {
	if ctx.Err() != nil {
		return Session{}, false
	}
	sess, reason := m.restoreSession(ctx)
	if reason != nil {
		m.endSession(ctx, *reason)
		return Session{}, false
	}

	m.metrics.Inc(MetricSessionRestored)
	m.emitAudit(ctx, AuditSessionRestored, true, sess.Username, string(sess.Role), nil)
	m.log.V(1).Info("session restored", "username", sess.Username, "role", sess.Role)
	return sess, true
}

func (m *Manager) restoreSession(ctx context.Context) (Session, *endReason) {
	fail := func(r endReason) (Session, *endReason) { return Session{}, &r }

	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := m.store.Get(ctx, m.cfg.Session.TokenKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Error(err, "read credential")
		}
		return fail(endMissing)
	}
	md, err := token.Inspect(raw)
	if err != nil {
		return fail(endCorrupt)
	}
	if md.Expired(m.now(), m.cfg.Session.Leeway) {
		return fail(endExpired)
	}

	doc, err := m.store.Get(ctx, m.cfg.Session.ProfileKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Error(err, "read profile")
		}
		return fail(endCorrupt)
	}
	var p profile
	if err := json.Unmarshal([]byte(doc), &p); err != nil || p.Username == "" || p.Role == "" {
		return fail(endCorrupt)
	}

	sess := Session{Username: p.Username, Role: p.Role, Token: token.Strip(raw)}
	m.state.publish(&sess)
	return sess, nil
}

// IsAuthenticated reports whether an unexpired credential is persisted.
// It does not change any state.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	raw, err := m.store.Get(ctx, m.cfg.Session.TokenKey)
	if err != nil || strings.TrimSpace(raw) == "" {
		return false
	}
	md, err := token.Inspect(raw)
	if err != nil {
		return false
	}
	return !md.Expired(m.now(), m.cfg.Session.Leeway)
}

// HasRole reports whether a session is active and its role is one of
// roles. It is false with no session or no roles.
func (m *Manager) HasRole(roles ...Role) bool {
	s := m.state.get()
	return s != nil && s.HasRole(roles...)
}

// Token returns the persisted credential without any "Bearer " prefix.
func (m *Manager) Token(ctx context.Context) (string, bool) {
	raw, err := m.store.Get(ctx, m.cfg.Session.TokenKey)
	if err != nil {
		return "", false
	}
	tok := token.Strip(raw)
	return tok, tok != ""
}

// Current returns the published session.
func (m *Manager) Current() (Session, bool) {
	s := m.state.get()
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

// Subscribe registers fn for session changes and calls it immediately with
// the current value; nil means logged out. Calls are synchronous and
// ordered. fn must not call Login, Logout, CheckAuthState or Subscribe.
// The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(*Session)) (cancel func()) {
	return m.state.subscribe(fn)
}

// Register creates a user account. The active session is not affected.
func (m *Manager) Register(ctx context.Context, req api.RegisterRequest) (string, error) {
	return m.api.Auth().Register(ctx, req)
}

// HTTPClient returns the client that attaches the credential and
// translates 401/403 responses into logout and redirect.
func (m *Manager) HTTPClient() *http.Client { return m.httpClient }

// API returns the lending API bound to [Manager.HTTPClient].
func (m *Manager) API() *api.Client { return m.api }

// Authority adapts m for route guards.
func (m *Manager) Authority() guard.Authority { return authority{m} }

// Metrics exposes the manager's counters.
func (m *Manager) Metrics() *Metrics { return m.metrics }

// MetricsSnapshot implements the source interface of the metrics exporters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot { return m.metrics.Snapshot() }

// AuditDropped returns how many audit events were dropped on a full buffer.
func (m *Manager) AuditDropped() uint64 { return m.audit.Dropped() }

// Close flushes pending audit events and releases connections the
// manager opened itself.
func (m *Manager) Close() error {
	m.audit.Close()
	var errs []error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}

type authority struct{ m *Manager }

func (a authority) IsAuthenticated(ctx context.Context) bool { return a.m.IsAuthenticated(ctx) }

func (a authority) HasRole(roles ...string) bool {
	rs := make([]Role, len(roles))
	for i, r := range roles {
		rs[i] = Role(r)
	}
	return a.m.HasRole(rs...)
}

// faultHandler turns API authorization faults into session transitions.
type faultHandler struct{ m *Manager }

// Unauthorized ends the session. A 401 for a request that carried a
// credential other than the one now stored belongs to a session that was
// already replaced and is ignored. A 401 for an anonymous request goes to
// the login route without a notice.
func (h faultHandler) Unauthorized(req *http.Request) {
	ctx := context.WithoutCancel(req.Context())
	sent, _ := transport.BearerToken(req.Header.Get("Authorization"))
	current, _ := h.m.Token(ctx)
	if sent != current {
		h.m.log.V(1).Info("ignoring 401 for a replaced credential", "path", req.URL.Path)
		return
	}
	if sent == "" {
		h.m.endSession(ctx, endMissing)
		return
	}
	h.m.endSession(ctx, endForced)
}

func (h faultHandler) Forbidden(req *http.Request) {
	m := h.m
	var username, role string
	if s := m.state.get(); s != nil {
		username, role = s.Username, string(s.Role)
	}
	m.metrics.Inc(MetricAccessDenied)
	m.emitAudit(req.Context(), AuditAccessDenied, false, username, role, api.ErrForbidden, "path", req.URL.Path, "method", req.Method)
	m.log.Info("access denied", "method", req.Method, "path", req.URL.Path, "role", role)
	m.nav.Navigate(m.cfg.Session.DefaultRoute, NoticeForbidden)
}

func (h faultHandler) Completed(req *http.Request, status int, err error, elapsed time.Duration) {
	if err == nil && status < http.StatusBadRequest {
		h.m.metrics.Inc(MetricRequestSuccess)
	} else {
		h.m.metrics.Inc(MetricRequestFailure)
	}
	h.m.metrics.Observe(MetricRequestLatency, elapsed)
	h.m.log.V(2).Info("api request", "method", req.Method, "path", req.URL.Path, "status", status, "elapsed", elapsed)
}

// Audit error codes.
const (
	auditErrInvalidCredentials = "invalid_credentials"
	auditErrIncomplete         = "incomplete_response"
	auditErrPersist            = "persist_failed"
	auditErrUnauthorized       = "unauthorized"
	auditErrForbidden          = "forbidden"
	auditErrCorrupt            = "corrupt_session"
	auditErrServer             = "server_error"
	auditErrUnavailable        = "backend_unavailable"
	auditErrInternal           = "internal_error"
)

// emitAudit queues an audit event. kv are metadata key/value pairs.
func (m *Manager) emitAudit(ctx context.Context, eventType string, success bool, username, role string, err error, kv ...string) {
	if m.audit == nil {
		return
	}

	var metadata map[string]string
	if origin := originFromContext(ctx); origin != "" || len(kv) > 0 {
		metadata = make(map[string]string, len(kv)/2+1)
		if origin != "" {
			metadata["origin"] = origin
		}
		for i := 0; i+1 < len(kv); i += 2 {
			metadata[kv[i]] = kv[i+1]
		}
	}

	m.audit.Emit(ctx, AuditEvent{
		Timestamp: m.now().UTC(),
		EventType: eventType,
		Username:  username,
		Role:      role,
		Success:   success,
		Error:     auditErrorCode(eventType, err),
		Metadata:  metadata,
	})
}

func auditErrorCode(eventType string, err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrIncompleteResponse):
		return auditErrIncomplete
	case errors.Is(err, ErrPersist):
		return auditErrPersist
	case errors.Is(err, errCorruptSession):
		return auditErrCorrupt
	case errors.Is(err, api.ErrUnauthorized):
		if eventType == AuditLoginFailure {
			return auditErrInvalidCredentials
		}
		return auditErrUnauthorized
	case errors.Is(err, api.ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, api.ErrServer):
		return auditErrServer
	case errors.Is(err, api.ErrTransport),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, store.ErrUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
