package app

import (
	"context"
	"net/http"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/atomic"

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

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	bcrypt    hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	messaging messaging.Messaging
	storage   storage.Storage
	casbin    *casbin.Enforcer

	// server
	ready      *atomic.Bool
	router     *router.Router
	httpServer *http.Server

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
		ready:  atomic.NewBool(false),
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initStorage()
	app.initMessaging()
	app.initCasbin()
	app.initHTTPServer()
	app.initModules()

	return app
}
