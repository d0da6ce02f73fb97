package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc/health"

	grpchealth "github.com/dtroode/coursemarket-auth/internal/api/grpc/health"
	grpcrouter "github.com/dtroode/coursemarket-auth/internal/api/grpc/router"
	grpcserver "github.com/dtroode/coursemarket-auth/internal/api/grpc/server"
	httpctx "github.com/dtroode/coursemarket-auth/internal/api/http/context"
	httprouter "github.com/dtroode/coursemarket-auth/internal/api/http/router"
	httpserver "github.com/dtroode/coursemarket-auth/internal/api/http/server"
	"github.com/dtroode/coursemarket-auth/internal/config"
	"github.com/dtroode/coursemarket-auth/internal/events"
	"github.com/dtroode/coursemarket-auth/internal/federated"
	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/metrics"
	"github.com/dtroode/coursemarket-auth/internal/model"
	"github.com/dtroode/coursemarket-auth/internal/obs"
	"github.com/dtroode/coursemarket-auth/internal/repository/memory"
	"github.com/dtroode/coursemarket-auth/internal/repository/postgres"
	"github.com/dtroode/coursemarket-auth/internal/repository/redis"
	"github.com/dtroode/coursemarket-auth/internal/security"
	"github.com/dtroode/coursemarket-auth/internal/server"
	"github.com/dtroode/coursemarket-auth/internal/service"
	"github.com/dtroode/coursemarket-auth/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const shutdownTimeout = 10 * time.Second

// stores bundles the persistence backends selected by DATABASE_DRIVER.
type stores struct {
	users    model.UserStore
	sessions model.SessionStore
	tx       model.Transactor
	pinger   model.Pinger
	close    func() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	logAppVersion()

	otelSetup, err := obs.SetupOTel(ctx, cfg.OTel)
	if err != nil {
		logger.Fatal("failed to set up tracing", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	authMetrics := metrics.New(reg)

	hasher := security.NewHasher(cfg.BcryptCost)
	st, err := openStores(ctx, cfg.Database, hasher, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer st.close()

	var (
		revocations model.RevocationStore = st.users
		recorder    model.RevocationRecorder
	)
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cache := redis.NewRevocationCache(client, st.users, cfg.Redis.RevocationTTL, logger)
		revocations = cache
		recorder = cache
		logger.Info("revocation cache enabled", "addr", cfg.Redis.Addr)
	}

	var publisher model.EventPublisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	codec := token.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
	verifier := newFederatedVerifier(cfg.Google, authMetrics, logger)

	tokenService := service.NewTokenService(st.sessions, st.users, codec, publisher, authMetrics, logger, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	authService := service.NewAuth(st.users, verifier, tokenService, logger)
	logoutService := service.NewLogout(st.sessions, st.users, recorder, st.tx, publisher, authMetrics, logger, cfg.Session.PurgeOnLogoutAll)
	revocationService := service.NewRevocation(revocations, authMetrics, logger)
	janitor := service.NewJanitor(st.sessions, cfg.Session.JanitorInterval, authMetrics, logger)

	handler := httprouter.New(httprouter.Deps{
		AuthService:       authService,
		TokenService:      tokenService,
		LogoutService:     logoutService,
		RevocationChecker: revocationService,
		Codec:             codec,
		ContextManager:    httpctx.NewManager(),
		Pinger:            st.pinger,
		Gatherer:          reg,
		Metrics:           authMetrics,
		TrustProxy:        cfg.HTTP.TrustProxy,
		Logger:            logger,
	}).Register()

	var wg sync.WaitGroup
	servers := []model.Server{}

	apiServer := httpserver.NewHTTPServer(handler, cfg.HTTP)
	servers = append(servers, apiServer)
	startServer(&wg, logger, apiServer, server.NewSecurityLayer(cfg.HTTP))

	if cfg.GRPC.Enable {
		healthServer := health.NewServer()
		grpcMetrics := grpcprometheus.NewServerMetrics()
		grpcMetrics.EnableHandlingTimeHistogram()
		reg.MustRegister(grpcMetrics)

		opsServer := grpcserver.NewGRPCServer(
			grpcrouter.New(healthServer, grpcMetrics, logger).Register(),
			fmt.Sprintf(":%s", cfg.GRPC.Port),
		)
		servers = append(servers, opsServer)
		startServer(&wg, logger, opsServer, server.NewPlainListener())

		updater := grpchealth.NewUpdater(healthServer, st.pinger, cfg.GRPC.HealthInterval, logger)
		runBackground(ctx, &wg, logger, "health updater", updater.Run)
	}

	runBackground(ctx, &wg, logger, "session janitor", janitor.Run)

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()

	if err := otelSetup.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

func openStores(ctx context.Context, cfg config.Database, hasher model.PasswordHasher, logger *logger.Logger) (*stores, error) {
	if cfg.Driver == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore(hasher)
		return &stores{
			users:    store.Users(),
			sessions: store.Sessions(),
			tx:       store,
			pinger:   store,
			close:    func() error { return nil },
		}, nil
	}

	db, err := postgres.NewConnection(ctx, cfg.DSN, cfg.QueryTimeout)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:    postgres.NewUserRepository(db, hasher),
		sessions: postgres.NewSessionRepository(db),
		tx:       postgres.NewTransactor(db, logger),
		pinger:   db,
		close:    db.Close,
	}, nil
}

func newFederatedVerifier(cfg config.Google, m *metrics.Auth, logger *logger.Logger) *federated.Verifier {
	client := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.Timeout,
	}
	clientIDs := cfg.ClientIDs()
	if len(clientIDs) == 0 {
		logger.Warn("no Google client IDs configured, federated sign-in will reject every credential")
	}

	return federated.NewVerifier(
		federated.NewAssertionVerifier(cfg.CertsURL, client, clientIDs),
		federated.NewTokenInfoVerifier(cfg.TokenInfoURL, client, clientIDs),
		cfg.Timeout,
		m,
		logger,
	)
}

func startServer(wg *sync.WaitGroup, logger *logger.Logger, s model.Server, sl model.SecurityLayer) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err, "address", s.Address())
		}
	}()
}

func runBackground(ctx context.Context, wg *sync.WaitGroup, logger *logger.Logger, name string, run func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("background task stopped", "task", name, "error", err)
		}
	}()
}
