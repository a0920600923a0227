package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-builder/internal/api"
	"github.com/annel0/voxel-builder/internal/app"
	"github.com/annel0/voxel-builder/internal/config"
	"github.com/annel0/voxel-builder/internal/eventbus"
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/observability"
	"github.com/annel0/voxel-builder/internal/storage"
	"github.com/annel0/voxel-builder/internal/storage_adapter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $EDITOR_CONFIG)")
	restoreSlot := flag.String("slot", "", "слот, загружаемый при старте (например autosave)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Logging.Dir != "" {
		logging.SetLogDir(cfg.Logging.Dir)
	}
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	logging.SetConsoleLevel(logging.ParseLevel(cfg.Logging.Level))

	logging.Info("🧱 Запуск редактора блочного мира...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === OBSERVABILITY ===
	shutdownTracing, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		logging.Warn("⚠️ Трассировка недоступна: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	editorMetrics := observability.NewEditorMetrics(registry)

	// === EVENT BUS ===
	bus := newEventBus(cfg.EventBus)
	eventbus.Init(bus)
	defer func() {
		if err := eventbus.Shutdown(); err != nil {
			logging.Warn("⚠️ Ошибка закрытия шины событий: %v", err)
		}
	}()

	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("⚠️ Не удалось подписать логгер событий: %v", err)
	}
	exporter := eventbus.NewMetricsExporter(bus, registry)
	exporter.Start()
	defer exporter.Stop()

	// === STORAGE ===
	saves, err := storage_adapter.NewSaveManager(ctx, cfg.Storage, storage.WithSaveObserver(editorMetrics))
	if err != nil {
		logging.Error("❌ Ошибка инициализации хранилища: %v", err)
		log.Fatalf("❌ Ошибка инициализации хранилища: %v", err)
	}
	defer saves.Store().Close()

	// === EDITOR ===
	hub := api.NewHub()
	session := app.NewSession(cfg,
		app.WithEventBus(bus),
		app.WithMetrics(editorMetrics),
		app.WithChangeSink(hub.OnChange),
	)

	if *restoreSlot != "" {
		n, err := session.LoadSlot(ctx, saves, *restoreSlot, false)
		switch {
		case errors.Is(err, storage.ErrSlotNotFound):
			logging.Warn("⚠️ Слот %s не найден, начинаем с пустого мира", *restoreSlot)
		case err != nil:
			logging.Error("❌ Ошибка загрузки слота %s: %v", *restoreSlot, err)
		default:
			logging.Info("📂 Восстановлен слот %s: %d блоков", *restoreSlot, n)
		}
	}

	if cfg.Editor.AutosaveSeconds > 0 {
		go saves.RunAutosave(ctx, time.Duration(cfg.Editor.AutosaveSeconds)*time.Second, session)
	}

	// === SERVERS ===
	restPort := cfg.Server.GetRESTPort()
	server := api.NewRestServer(api.Config{
		Port:     fmt.Sprintf(":%d", restPort),
		Session:  session,
		Saves:    saves,
		Hub:      hub,
		Registry: registry,
	})

	errCh := make(chan error, 2)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("rest api: %w", err)
		}
	}()

	var metricsServer *http.Server
	if metricsPort := cfg.Server.GetMetricsPort(); metricsPort != restPort {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", metricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics: %w", err)
			}
		}()
		logging.Info("📊 Prometheus метрики: http://localhost:%d/metrics", metricsPort)
	}

	logging.Info("✅ Редактор готов")
	logging.Info("   🌐 REST API: http://localhost:%d/api", restPort)
	logging.Info("   🔌 Поток изменений: ws://localhost:%d/ws", restPort)
	logging.Info("   ❤️  Health check: http://localhost:%d/health", restPort)

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, останавливаемся...")
	case err := <-errCh:
		logging.Error("❌ Сервер остановился с ошибкой: %v", err)
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	if cfg.Editor.AutosaveSeconds > 0 {
		if saved, err := saves.Autosave(shutdownCtx, session); err != nil {
			logging.Error("❌ Финальное автосохранение не удалось: %v", err)
		} else if saved {
			logging.Info("💾 Финальное автосохранение выполнено")
		}
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		logging.Warn("⚠️ Ошибка остановки трассировки: %v", err)
	}

	logging.Info("👋 Редактор остановлен")
}

// newEventBus подключает JetStream, если задан URL, иначе поднимает шину в памяти
func newEventBus(cfg config.EventBusConfig) eventbus.EventBus {
	if cfg.URL != "" {
		bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
		if err == nil {
			return bus
		}
		logging.Warn("⚠️ JetStream недоступен (%v), используем шину в памяти", err)
	}
	return eventbus.NewMemoryBus(cfg.Buffer)
}
