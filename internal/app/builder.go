package app

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradesync/internal/alert"
	"tradesync/internal/broadcast"
	"tradesync/internal/broker"
	"tradesync/internal/classifier"
	"tradesync/internal/config"
	"tradesync/internal/dispatch"
	"tradesync/internal/logger"
	"tradesync/internal/service"
	"tradesync/internal/store"
	"tradesync/internal/store/alertlog"
	"tradesync/internal/store/sqlite"
	httpserver "tradesync/internal/transport/http"
)

// 中文说明：
// AppBuilder 负责依赖装配：配置 → 存储/券商/分类器 → 抽取器/分发器 → 服务 → HTTP。
// 每个环节都留了构造钩子，测试可以替换为桩实现。

type AppBuilder struct {
	cfg *config.Config

	storeFn      func(config.StoreConfig) (store.AlertStore, error)
	brokerFn     func(config.BrokerConfig) (broker.Broker, error)
	classifierFn func(config.ClassifierConfig) (alert.Classifier, error)
}

type AppBuilderOption func(*AppBuilder)

// WithStoreFactory 替换存储构造（测试用）
func WithStoreFactory(fn func(config.StoreConfig) (store.AlertStore, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.storeFn = fn }
}

// WithBrokerFactory 替换券商构造（测试用）
func WithBrokerFactory(fn func(config.BrokerConfig) (broker.Broker, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.brokerFn = fn }
}

// WithClassifierFactory 替换分类器构造（测试用）
func WithClassifierFactory(fn func(config.ClassifierConfig) (alert.Classifier, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.classifierFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:          cfg,
		storeFn:      buildStore,
		brokerFn:     buildBroker,
		classifierFn: buildClassifier,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildStore(cfg config.StoreConfig) (store.AlertStore, error) {
	return sqlite.NewSqliteStore(cfg.Path)
}

func buildBroker(cfg config.BrokerConfig) (broker.Broker, error) {
	return broker.NewAlpacaBroker(broker.AlpacaConfig{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
}

func buildClassifier(cfg config.ClassifierConfig) (alert.Classifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return classifier.NewStructuredExtractor(classifier.Config{
		BaseURL:    cfg.APIURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.MaxRetries,
	})
}

// Build 按依赖顺序装配应用（不启动）。
func (b *AppBuilder) Build() (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	st, err := b.storeFn(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("building store: %w", err)
	}
	brk, err := b.brokerFn(cfg.Broker)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("building broker: %w", err)
	}
	cls, err := b.classifierFn(cfg.Classifier)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("building classifier: %w", err)
	}

	extractorOpts := []alert.Option{}
	if cls != nil {
		extractorOpts = append(extractorOpts, alert.WithClassifier(cls))
		logger.Infof("classifier enabled model=%s", cfg.Classifier.Model)
	} else {
		logger.Infof("classifier disabled, heuristic parser only")
	}
	extractor := alert.NewExtractor(extractorOpts...)

	dispatcher := dispatch.NewDispatcher(brk,
		dispatch.WithMinCash(decimal.NewFromFloat(cfg.Dispatch.MinCashUSD)),
		dispatch.WithBrokerTimeout(time.Duration(cfg.Dispatch.TimeoutSeconds)*time.Second),
	)

	var audit *alertlog.AuditLog
	if cfg.Store.AuditPath != "" {
		audit, err = alertlog.NewAuditLog(cfg.Store.AuditPath)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("building audit log: %w", err)
		}
	}

	hub := broadcast.NewHub()
	svcOpts := []service.ServiceOption{}
	if audit != nil {
		svcOpts = append(svcOpts, service.WithAuditLog(audit))
	}
	svc := service.NewAlertService(extractor, dispatcher, st, hub, svcOpts...)

	server, err := httpserver.NewServer(httpserver.ServerConfig{
		Addr: cfg.App.HTTPAddr,
		Router: &httpserver.Router{
			Service: svc,
			Store:   st,
			Broker:  brk,
			Hub:     hub,
			Audit:   audit,
		},
	})
	if err != nil {
		st.Close()
		if audit != nil {
			audit.Close()
		}
		return nil, fmt.Errorf("building http server: %w", err)
	}

	return &App{cfg: cfg, store: st, audit: audit, hub: hub, server: server}, nil
}
