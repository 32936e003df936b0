package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	pricing "github.com/wyfcoding/indexderivatives/internal/pricing/domain"

	md_app "github.com/wyfcoding/indexderivatives/internal/marketdata/application"
	md_domain "github.com/wyfcoding/indexderivatives/internal/marketdata/domain"
	"github.com/wyfcoding/indexderivatives/internal/marketdata/infrastructure/feed"
	md_mysql "github.com/wyfcoding/indexderivatives/internal/marketdata/infrastructure/persistence/mysql"
	md_consumer "github.com/wyfcoding/indexderivatives/internal/marketdata/interfaces/consumer"
	md_http "github.com/wyfcoding/indexderivatives/internal/marketdata/interfaces/http"
	pr_app "github.com/wyfcoding/indexderivatives/internal/pricing/application"
	pr_http "github.com/wyfcoding/indexderivatives/internal/pricing/interfaces/http"
	sc_app "github.com/wyfcoding/indexderivatives/internal/scenario/application"
	sc_domain "github.com/wyfcoding/indexderivatives/internal/scenario/domain"
	sc_mysql "github.com/wyfcoding/indexderivatives/internal/scenario/infrastructure/persistence/mysql"
	sc_http "github.com/wyfcoding/indexderivatives/internal/scenario/interfaces/http"
	"github.com/wyfcoding/indexderivatives/pkg/config"
	"github.com/wyfcoding/indexderivatives/pkg/logger"
	"github.com/wyfcoding/indexderivatives/pkg/metrics"
	"github.com/wyfcoding/indexderivatives/pkg/mq"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/pricingengine/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}

	// 3. Database
	db, err := gorm.Open(gorm_mysql.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}
	if err := db.AutoMigrate(&md_mysql.InstrumentModel{}, &sc_mysql.ScenarioTradeModel{}); err != nil {
		panic(fmt.Sprintf("migrate db failed: %v", err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
	}

	// 4. Infrastructure & Domain
	kafkaCfg := mq.KafkaConfig{Brokers: cfg.Kafka.Brokers, GroupID: cfg.Kafka.GroupID}
	tickConsumer := mq.NewConsumer(kafkaCfg, cfg.Kafka.TickTopic)
	rateConsumer := mq.NewConsumer(kafkaCfg, cfg.Kafka.RateTopic)
	producer := mq.NewProducer(kafkaCfg)
	defer producer.Close()

	marketFeed := feed.NewKafkaFeed()
	tickUpdater := md_consumer.NewTickConsumer(tickConsumer, marketFeed)

	rates, err := md_domain.NewRateHolder(cfg.Aggregator.InitialRate)
	if err != nil {
		panic(fmt.Sprintf("init rate holder failed: %v", err))
	}
	rateUpdater := md_consumer.NewRateConsumer(rateConsumer, rates)

	instruments := md_mysql.NewInstrumentRepository(db)
	holder := &md_domain.SnapshotHolder{}

	aggregator := md_app.NewSnapshotAggregator(
		md_app.AggregatorConfig{
			IndexSymbol:        cfg.Aggregator.IndexSymbol,
			RefreshInterval:    time.Duration(cfg.Aggregator.RefreshIntervalMs) * time.Millisecond,
			AckPollInterval:    time.Duration(cfg.Aggregator.AckPollIntervalMs) * time.Millisecond,
			AckTimeout:         time.Duration(cfg.Aggregator.AckTimeoutMs) * time.Millisecond,
			OpenInterestCutoff: cfg.Aggregator.OpenInterestCutoff,
			DividendYield:      cfg.Aggregator.DividendYield,
		},
		instruments, marketFeed, marketFeed, rates, md_domain.NewAct365Calendar(), holder,
	)

	calc := pricing.NewGreeksCalculator(pricing.BumpSizes{
		ForwardRel: cfg.Pricing.ForwardBumpRel,
		VolAbs:     cfg.Pricing.VolBumpAbs,
		RateAbs:    cfg.Pricing.RateBumpAbs,
	})
	engine := sc_domain.NewEngine(calc)

	// 5. Application
	queryService := md_app.NewMarketQueryService(holder, calc)
	valuationService := pr_app.NewValuationService(holder, calc)
	scenarioService := sc_app.NewScenarioService(
		sc_mysql.NewTradeRepository(db),
		holder,
		engine,
		producer,
		cfg.Kafka.ScenarioTopic,
		sc_domain.GridRequest{
			SpotShifts: cfg.Scenario.SpotShifts,
			VolShifts:  cfg.Scenario.VolShifts,
			TimeShifts: cfg.Scenario.TimeShifts,
		},
	)

	// 6. Interfaces
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Next()
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, c.FullPath(), strconv.Itoa(c.Writer.Status()),
		).Inc()
	})

	sys := r.Group("/sys")
	{
		sys.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		sys.GET("/ready", func(c *gin.Context) {
			if holder.Current() == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "WAITING_FOR_SNAPSHOT"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "READY"})
		})
	}
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}
	pp := r.Group("/debug/pprof")
	{
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
	}

	api := r.Group("/api/v1")
	md_http.NewMarketDataHandler(queryService).RegisterRoutes(api)
	pr_http.NewPricingHandler(valuationService).RegisterRoutes(api)
	sc_http.NewScenarioHandler(scenarioService).RegisterRoutes(api)

	// 7. Start
	g, ctx := errgroup.WithContext(context.Background())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g.Go(func() error { return ignoreCanceled(tickUpdater.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(rateUpdater.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(aggregator.Run(ctx)) })

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 8. Graceful Shutdown
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}

func ignoreCanceled(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}
