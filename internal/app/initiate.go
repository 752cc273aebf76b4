package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sethvargo/go-retry"

	"github.com/shandysiswandi/clovigo/internal/database"
	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
	"github.com/shandysiswandi/clovigo/internal/pkg/config"
	"github.com/shandysiswandi/clovigo/internal/pkg/goroutine"
	"github.com/shandysiswandi/clovigo/internal/pkg/hash"
	"github.com/shandysiswandi/clovigo/internal/pkg/idempotency"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/jwt"
	"github.com/shandysiswandi/clovigo/internal/pkg/messaging"
	"github.com/shandysiswandi/clovigo/internal/pkg/router"
	"github.com/shandysiswandi/clovigo/internal/pkg/storage"
	"github.com/shandysiswandi/clovigo/internal/pkg/uid"
	"github.com/shandysiswandi/clovigo/internal/pkg/validator"
)

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
	a.onClose("Config", func(context.Context) error { return a.config.Close() })
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		LogLevel:         a.config.GetString("instrument.log_level"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
	a.onClose("Instrument", a.ins.Shutdown)
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	a.hmac = hash.NewHMACSHA256(a.config.GetString("hash.hmac.secret"))
	a.bcrypt = hash.NewBcrypt(a.config.GetInt("hash.bcrypt.cost"), a.config.GetString("hash.bcrypt.pepper"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflakeNode(a.config.GetInt64("app.node_id"))
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow
}

func (a *App) initJWT() {
	defaultJWT, err := jwt.NewHS512(jwt.Config{
		Secret:     []byte(a.config.GetString("jwt.secret")),
		Issuer:     a.config.GetString("jwt.issuer"),
		Audiences:  a.config.GetArray("jwt.audiences"),
		AccessTTL:  a.config.GetMinute("jwt.access_ttl_minutes"),
		RefreshTTL: a.config.GetMinute("jwt.refresh_ttl_minutes"),
		Clock:      a.clock,
		UUID:       a.uuid,
	})
	if err != nil {
		slog.Error("failed to init jwt token", "error", err)
		os.Exit(1)
	}
	a.jwt = defaultJWT
}

// initDatabase opens the pool, retrying the first ping with fibonacci
// backoff while postgres comes up, then applies migrations when asked to.
func (a *App) initDatabase() {
	dsn := a.config.GetString("database.url")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = int32(a.config.GetInt("database.pool.max_conns"))
	config.MinConns = int32(a.config.GetInt("database.pool.min_conns"))
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	attempts := uint64(max(a.config.GetInt("database.connect_attempts"), 1))
	backoff := retry.WithMaxRetries(attempts-1, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(a.ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			slog.WarnContext(ctx, "failed to ping DB, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	if a.config.GetBool("database.migrate_on_start") {
		if err := database.Migrate(dsn, database.Up); err != nil {
			slog.Error("failed to migrate DB", "error", err)
			os.Exit(1)
		}
	}

	a.dbConn = pool
	a.onClose("Database", func(context.Context) error {
		a.dbConn.Close()
		return nil
	})
}

func (a *App) initCache() {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
	a.idemp = idempotency.New(a.cacheConn, a.config.GetString("redis.idempotency_prefix"))
	a.onClose("Redis", func(context.Context) error { return a.cacheConn.Close() })
}

func (a *App) initStorage() {
	driver := strings.TrimSpace(a.config.GetString("storage.driver"))

	stg, err := storage.NewFromDriver(a.ctx, driver, storage.FactoryOptions{
		Bucket: strings.TrimSpace(a.config.GetString("storage.bucket")),
		S3: storage.S3Options{
			Region:       strings.TrimSpace(a.config.GetString("storage.s3.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.s3.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.s3.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.s3.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.s3.session_token")),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		MinIO: storage.MinIOOptions{
			Region:       strings.TrimSpace(a.config.GetString("storage.minio.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.minio.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.minio.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.minio.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.minio.session_token")),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
		},
	})
	if err != nil {
		slog.Error("failed to init storage", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.storage = stg
	a.onClose("Storage", func(context.Context) error { return a.storage.Close() })
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")
	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		ConnectAttempts: uint64(max(a.config.GetInt("messaging.connect_attempts"), 1)),
		NSQ:             a.nsqSettings(),
		NATS: messaging.NATSConfig{
			URL:     a.config.GetString("messaging.nats.url"),
			Options: a.natsOptions(),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
	a.onClose("Messaging", func(context.Context) error { return a.messaging.Close() })
}

func (a *App) nsqSettings() messaging.NSQConfig {
	timeouts := func(cfg *nsq.Config, prefix string) {
		cfg.DialTimeout = a.config.GetSecond(prefix + ".dial_timeout_seconds")
		cfg.ReadTimeout = a.config.GetSecond(prefix + ".read_timeout_seconds")
		cfg.WriteTimeout = a.config.GetSecond(prefix + ".write_timeout_seconds")
	}

	producer := nsq.NewConfig()
	timeouts(producer, "messaging.nsq.producer_config")

	consumer := nsq.NewConfig()
	timeouts(consumer, "messaging.nsq.consumer_config")
	consumer.MaxInFlight = a.config.GetInt("messaging.nsq.consumer_config.max_in_flight")
	consumer.LookupdPollInterval = a.config.GetSecond("messaging.nsq.consumer_config.lookupd_poll_interval_seconds")
	// one delivery attempt: a failed OTP send is never replayed
	consumer.MaxAttempts = 1

	return messaging.NSQConfig{
		ProducerAddr:         a.config.GetString("messaging.nsq.producer_addr"),
		ConsumerNSQDAddrs:    a.config.GetArray("messaging.nsq.consumer_nsqd_addrs"),
		ConsumerLookupdAddrs: a.config.GetArray("messaging.nsq.consumer_lookupd_addrs"),
		ProducerConfig:       producer,
		ConsumerConfig:       consumer,
	}
}

func (a *App) natsOptions() []nats.Option {
	const p = "messaging.nats."
	return []nats.Option{
		nats.Name(a.config.GetString(p + "name")),
		nats.MaxReconnects(a.config.GetInt(p + "max_reconnects")),
		nats.Timeout(a.config.GetSecond(p + "timeout_seconds")),
		nats.ReconnectWait(a.config.GetSecond(p + "reconnect_wait_seconds")),
		nats.PingInterval(a.config.GetSecond(p + "ping_interval_seconds")),
		nats.MaxPingsOutstanding(a.config.GetInt(p + "max_pings_outstanding")),
		nats.RetryOnFailedConnect(a.config.GetBool(p + "retry_on_failed_connect")),
	}
}

// rbacModel grants p.obj/p.act to roles; "*" matches any object or action.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// defaultPolicies lets every account role read its own profile.
var defaultPolicies = [][]string{
	{"customer", "accounts.profile", "read"},
	{"seller", "accounts.profile", "read"},
	{"deliveryboy", "accounts.profile", "read"},
}

func (a *App) initCasbin() {
	e, err := newEnforcer(a.config.GetArray("casbin.extra_policies"))
	if err != nil {
		slog.Error("failed to init casbin", "error", err)
		os.Exit(1)
	}

	a.casbin = e
}

// newEnforcer builds an in-memory enforcer from defaultPolicies plus extra
// entries written as "role:object:action".
func newEnforcer(extra []string) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	policies := append([][]string{}, defaultPolicies...)
	for _, raw := range extra {
		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			slog.Warn("ignoring malformed casbin policy", "policy", raw)
			continue
		}
		policies = append(policies, parts)
	}

	if _, err := e.AddPolicies(policies); err != nil {
		return nil, err
	}

	return e, nil
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
		Enforcer:   a.casbin,
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}
