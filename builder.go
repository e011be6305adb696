package lendconsole

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/lendconsole/api"
	"github.com/MrEthical07/lendconsole/store"
	"github.com/MrEthical07/lendconsole/transport"
)

// Builder assembles a [Manager]. Configure it with the With methods, then
// call Build once.
type Builder struct {
	config Config

	store      store.Store
	redis      redis.UniversalClient
	httpClient *http.Client
	auditSink  AuditSink
	log        logr.Logger
	nav        Navigator
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		log:    logr.Discard(),
	}
}

// WithConfig replaces [DefaultConfig]. Build validates it.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore overrides the store selected by Config.Store.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis supplies the client used when Config.Store.Kind is redis. The
// caller keeps ownership; [Manager.Close] does not close it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the base client. Its Transport is wrapped, never
// modified; a zero Timeout takes Config.API.Timeout.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithAuditSink receives audit events when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logr logger. The default discards everything.
func (b *Builder) WithLogger(log logr.Logger) *Builder {
	b.log = log
	return b
}

// WithNavigator receives forced navigation (logout, denied access).
func (b *Builder) WithNavigator(nav Navigator) *Builder {
	b.nav = nav
	return b
}

// WithClock replaces time.Now for expiry checks and audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns a ready Manager. It does
// not restore a stored session; call [Manager.CheckAuthState] for that.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderReused
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:   cfg,
		nav:   b.nav,
		log:   b.log,
		now:   b.now,
		state: newBroadcast(),
	}
	if m.nav == nil {
		m.nav = noopNavigator{}
	}
	if m.now == nil {
		m.now = time.Now
	}

	// -------- SESSION STORE --------
	st, closer, err := b.buildStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	m.store = st
	if closer != nil {
		m.closers = append(m.closers, closer)
	}

	// -------- HTTP --------
	hc := &http.Client{}
	if b.httpClient != nil {
		*hc = *b.httpClient
	}
	if hc.Timeout <= 0 {
		hc.Timeout = cfg.API.Timeout
	}
	hc.Transport = transport.New(hc.Transport, m, faultHandler{m})
	m.httpClient = hc

	var opts []api.Option
	if cfg.API.UserAgent != "" {
		opts = append(opts, api.WithUserAgent(cfg.API.UserAgent))
	}
	m.api = api.New(cfg.API.BaseURL, hc, opts...)

	m.metrics = NewMetrics(cfg.Metrics)
	m.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	b.built = true
	m.log.V(2).Info("session manager ready", "api", cfg.API.BaseURL, "store", cfg.Store.Kind)
	return m, nil
}

func (b *Builder) buildStore(cfg StoreConfig) (store.Store, io.Closer, error) {
	if b.store != nil {
		return b.store, nil, nil
	}

	switch cfg.Kind {
	case StoreMemory:
		return store.NewMemory(), nil, nil
	case StoreFile:
		path := cfg.Path
		if path == "" {
			p, err := store.DefaultPath()
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrStoreConfig, err)
			}
			path = p
		}
		return store.NewFile(path), nil, nil
	case StoreRedis:
		rcfg := store.RedisConfig{
			Prefix:    cfg.RedisPrefix,
			Namespace: cfg.Namespace,
			TTL:       cfg.RedisTTL,
		}
		if b.redis != nil {
			return store.NewRedis(b.redis, rcfg), nil, nil
		}
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("%w: redis store needs RedisAddr or WithRedis", ErrStoreConfig)
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return store.NewRedis(client, rcfg), client, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown kind %q", ErrStoreConfig, cfg.Kind)
	}
}
