package app

import (
	"fmt"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/adapter/outbound/kv"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/adapter/outbound/loopback"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/adapter/outbound/probe"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/adapter/outbound/taskstore"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/adapter/outbound/telegram"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/config"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/metrics"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/queue"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/service"
	"github.com/anthanhphan/go-channel-file-storage/pkg/idgen"
	"github.com/anthanhphan/go-channel-file-storage/pkg/netmon"
	"github.com/anthanhphan/go-channel-file-storage/pkg/resilience"
	"github.com/anthanhphan/gosdk/logger"
)

// Deps holds every long-lived handle. It is built once and passed to
// constructors; nothing else keeps package-level state.
type Deps struct {
	Config    *config.Config
	Transport port.Transport
	KV        port.KVStore
	Files     *service.FileServiceImpl
	Links     *service.LinkServiceImpl
	Network   *netmon.Monitor
	Deletes   *queue.DeleteQueue
	TaskStore port.TaskStore
}

// NewDeps wires adapters and services from cfg. The caller owns Close.
func NewDeps(cfg *config.Config) (*Deps, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}

	store, err := kv.New(cfg.KV, cfg.KVTimeout())
	if err != nil {
		return nil, fmt.Errorf("failed to init kv index: %w", err)
	}

	files := service.NewFileService(cfg, transport, store)
	links := service.NewLinkService(cfg, files)

	monitor := netmon.New(netmon.Config{
		Endpoints:      cfg.Network.Endpoints,
		Interval:       cfg.NetworkInterval(),
		SignalInterval: cfg.SignalInterval(),
		ProbeTimeout:   cfg.ProbeTimeout(),
		Thresholds: netmon.Thresholds{
			Fair: time.Duration(cfg.Network.FairLatencyMS) * time.Millisecond,
			Good: time.Duration(cfg.Network.GoodLatencyMS) * time.Millisecond,
		},
	}, netmon.InterfaceSignal{}, probe.NewHTTPProber(cfg.ProbeTimeout()))

	tasks := taskstore.NewFileStore(cfg.Queue.StatePath)
	deletes := queue.New(queue.Config{
		MaxRetries:     cfg.QueueMaxRetries(),
		RetryDelay:     cfg.QueueRetryDelay(),
		AttemptTimeout: cfg.QueueAttemptTimeout(),
	}, files, tasks, monitor)

	monitor.Subscribe(deletes.OnNetworkStatus)
	monitor.Subscribe(func(s netmon.Status) {
		metrics.ObserveNetwork(s.IsOnline, s.Quality.Rank(), time.Duration(s.ResponseTimeMS)*time.Millisecond)
	})

	logger.Infow("Dependencies ready",
		"transport", cfg.Telegram.Mode,
		"channel_id", transport.ChannelID(),
		"kv_backend", store.Backend(),
		"queue_state", cfg.Queue.StatePath,
	)

	return &Deps{
		Config:    cfg,
		Transport: transport,
		KV:        store,
		Files:     files,
		Links:     links,
		Network:   monitor,
		Deletes:   deletes,
		TaskStore: tasks,
	}, nil
}

func newTransport(cfg *config.Config) (port.Transport, error) {
	if cfg.Telegram.Mode == config.TransportModeLoopback {
		ids, err := idgen.New(cfg.App.NodeID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to init snowflake: %w", err)
		}
		logger.Warnw("Using in-process loopback transport; files are not persisted", "channel_id", cfg.Telegram.ChannelID)
		return loopback.New(cfg.Telegram.ChannelID, ids), nil
	}

	client := telegram.NewClient(cfg.Telegram.APIBase, cfg.Telegram.BotToken, cfg.Telegram.ChannelID, cfg.TelegramTimeout())
	client.SetBreakerObserver(func(name string, from, to resilience.CircuitBreakerState) {
		metrics.ObserveBreaker(name, string(to))
		logger.Warnw("Telegram circuit state changed", "breaker", name, "from", string(from), "to", string(to))
	})
	return client, nil
}

// Close releases the index connection.
func (d *Deps) Close() error {
	return d.KV.Close()
}
