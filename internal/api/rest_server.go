package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/voxel-builder/internal/app"
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/middleware"
	"github.com/annel0/voxel-builder/internal/observability"
	"github.com/annel0/voxel-builder/internal/snapshot"
	"github.com/annel0/voxel-builder/internal/storage"
	"github.com/annel0/voxel-builder/internal/tools"
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
)

// MaxSnapshotBytes предельный размер тела PUT /api/snapshot
const MaxSnapshotBytes = 64 << 20

// RestServer представляет REST API редактора
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server
	session    *app.Session
	saves      *storage.SaveManager
	hub        *Hub
	port       string
	metrics    *ServerMetrics
	logger     *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string               // адрес для запуска сервера, например ":8088"
	Session  *app.Session         // редактируемый документ
	Saves    *storage.SaveManager // слоты сохранений; nil отключает /api/slots
	Hub      *Hub                 // поток изменений; nil отключает /ws
	Registry *prometheus.Registry // реестр метрик для /metrics; nil создаёт новый
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Session == nil {
		config.Session = app.NewSession(nil)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger(nil)
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("editor_api"))

	promMw := middleware.NewPrometheusMiddleware("editor_api", config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Registry)

	server := &RestServer{
		router:  router,
		session: config.Session,
		saves:   config.Saves,
		hub:     config.Hub,
		port:    config.Port,
		metrics: NewServerMetrics(),
		logger:  logging.GetAPILogger(),
	}

	server.setupRoutes()
	server.httpServer = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, "+middleware.RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	rs.router.GET("/health", rs.handleHealth)
	rs.router.GET("/ws", rs.handleStream)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)

		api.GET("/blocks", rs.handleGetBlocks)
		api.GET("/blocks/:key", rs.handleGetBlock)

		api.POST("/tool/click", rs.pointerHandler(rs.session.Click))
		api.POST("/tool/cancel", rs.handleCancel)
		api.POST("/brush/down", rs.pointerHandler(rs.session.PointerDown))
		api.POST("/brush/move", rs.pointerHandler(rs.session.PointerMove))
		api.POST("/brush/up", rs.pointerHandler(rs.session.PointerUp))

		api.GET("/selection", rs.handleGetSelection)
		api.PUT("/selection", rs.handlePutSelection)

		api.GET("/history", rs.handleGetHistory)
		api.POST("/history/undo", rs.handleUndo)
		api.POST("/history/redo", rs.handleRedo)

		api.GET("/snapshot", rs.handleGetSnapshot)
		api.PUT("/snapshot", rs.handlePutSnapshot)
		api.GET("/snapshot/schema", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/schema+json", snapshot.Schema())
		})

		slots := api.Group("/slots")
		slots.Use(rs.requireSaves())
		{
			slots.GET("", rs.handleListSlots)
			slots.GET("/:name", rs.handleGetSlot)
			slots.PUT("/:name", rs.handleSaveSlot)
			slots.DELETE("/:name", rs.handleDeleteSlot)
			slots.POST("/:name/load", rs.handleLoadSlot)
		}
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: message, Data: data})
}

// handleHealth проверка состояния
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStream подключает клиента к потоку изменений
func (rs *RestServer) handleStream(c *gin.Context) {
	if rs.hub == nil {
		respondError(c, http.StatusServiceUnavailable, "Поток изменений отключен")
		return
	}
	rs.hub.Serve(c.Writer, c.Request, func(clientID string) Hello {
		st := rs.session.Stats()
		return Hello{ClientID: clientID, Version: st.History.Version, Blocks: st.Blocks}
	})
}

// handleStats возвращает сводку по документу и процессу
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := map[string]interface{}{
		"editor": rs.session.Stats(),
		"server": rs.metrics.Collect(),
	}
	if rs.hub != nil {
		stats["stream_clients"] = rs.hub.ClientCount()
	}
	if rs.saves != nil {
		if sp, ok := rs.saves.Store().(interface {
			GetStorageStats() map[string]interface{}
		}); ok {
			stats["storage"] = sp.GetStorageStats()
		}
	}

	respondOK(c, "Статистика получена", stats)
}

// handleGetBlocks возвращает все блоки мира в формате снимка
func (rs *RestServer) handleGetBlocks(c *gin.Context) {
	snap := rs.session.Capture()
	respondOK(c, "Блоки получены", gin.H{
		"version": rs.session.Version(),
		"count":   len(snap.Blocks),
		"blocks":  snap.Blocks,
	})
}

// handleGetBlock возвращает блок по ключу "x,y,z"
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	pos, err := vec.ParseKey(c.Param("key"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Неверный ключ ячейки: "+err.Error())
		return
	}

	b, ok := rs.session.Block(pos)
	if !ok {
		respondError(c, http.StatusNotFound, "Ячейка пуста")
		return
	}

	respondOK(c, "Блок найден", BlockResponse{Key: pos.Key(), Pos: pos, Block: snapshot.FromBlock(b)})
}

// pointerHandler оборачивает операцию сессии над событием указателя
func (rs *RestServer) pointerHandler(op func(tools.PointerEvent) tools.Result) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PointerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Неверный формат события: "+err.Error())
			return
		}
		ev, err := req.Event()
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}

		res := op(ev)
		respondOK(c, string(res.Action), ToolResponse{Result: res, History: rs.session.History()})
	}
}

// handleCancel сбрасывает незавершённые жесты
func (rs *RestServer) handleCancel(c *gin.Context) {
	res := rs.session.Cancel()
	respondOK(c, string(res.Action), ToolResponse{Result: res, History: rs.session.History()})
}

func (rs *RestServer) handleGetSelection(c *gin.Context) {
	respondOK(c, "Выбор получен", NewSelectionDTO(rs.session.Selection()))
}

// handlePutSelection заменяет выбор целиком
func (rs *RestServer) handlePutSelection(c *gin.Context) {
	var dto SelectionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат выбора: "+err.Error())
		return
	}

	if err := rs.session.SetSelection(dto.Selection()); err != nil {
		if errors.Is(err, app.ErrInvalidSelection) {
			respondError(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondOK(c, "Выбор обновлён", NewSelectionDTO(rs.session.Selection()))
}

func (rs *RestServer) handleGetHistory(c *gin.Context) {
	respondOK(c, "История получена", rs.session.History())
}

func (rs *RestServer) handleUndo(c *gin.Context) {
	ok, h := rs.session.Undo()
	respondOK(c, "undo", HistoryResponse{Applied: ok, History: h})
}

func (rs *RestServer) handleRedo(c *gin.Context) {
	ok, h := rs.session.Redo()
	respondOK(c, "redo", HistoryResponse{Applied: ok, History: h})
}

// handleGetSnapshot отдаёт снимок мира как файл: JSON или zstd при format=zst
func (rs *RestServer) handleGetSnapshot(c *gin.Context) {
	snap := rs.session.Capture()

	var (
		data        []byte
		err         error
		contentType = "application/json"
	)
	switch c.DefaultQuery("format", "json") {
	case "json":
		data, err = snapshot.Encode(snap)
	case "zst":
		data, err = snapshot.EncodeCompressed(snap)
		contentType = "application/zstd"
	default:
		respondError(c, http.StatusBadRequest, "Неизвестный формат: "+c.Query("format"))
		return
	}
	if err != nil {
		rs.logger.Error("❌ Ошибка кодирования снимка: %v", err)
		respondError(c, http.StatusInternalServerError, "Ошибка кодирования снимка")
		return
	}

	c.Data(http.StatusOK, contentType, data)
}

// handlePutSnapshot загружает снимок из тела запроса (JSON или zstd)
func (rs *RestServer) handlePutSnapshot(c *gin.Context) {
	merge, err := parseMerge(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	_, span := observability.Tracer().Start(c.Request.Context(), "snapshot.import")
	defer span.End()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxSnapshotBytes))
	if err != nil {
		respondError(c, http.StatusRequestEntityTooLarge, "Снимок слишком большой или не прочитан")
		return
	}

	snap, err := snapshot.DecodeAny(body)
	if err == nil {
		var n int
		n, err = rs.session.LoadSnapshot(snap, merge)
		if err == nil {
			span.SetAttributes(attribute.Int("snapshot.blocks", n), attribute.Bool("snapshot.merge", merge))
			respondOK(c, "Снимок загружен", LoadResponse{Loaded: n, Merge: merge, History: rs.session.History()})
			return
		}
	}

	span.RecordError(err)
	if errors.Is(err, snapshot.ErrInvalidSnapshot) {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondError(c, http.StatusInternalServerError, err.Error())
}

func parseMerge(c *gin.Context) (bool, error) {
	raw := c.Query("merge")
	if raw == "" {
		return false, nil
	}
	merge, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New("параметр merge должен быть булевым")
	}
	return merge, nil
}

// requireSaves отвечает 503, если хранилище слотов не настроено
func (rs *RestServer) requireSaves() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rs.saves == nil {
			respondError(c, http.StatusServiceUnavailable, "Хранилище сохранений не настроено")
			c.Abort()
			return
		}
		c.Next()
	}
}

// slotStatus переводит ошибку хранилища в HTTP-статус
func slotStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrInvalidSlotName), errors.Is(err, snapshot.ErrInvalidSnapshot):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (rs *RestServer) slotError(c *gin.Context, op string, err error) {
	status := slotStatus(err)
	if status == http.StatusInternalServerError {
		rs.logger.Error("❌ Ошибка слота (%s %s): %v", op, c.Param("name"), err)
	}
	respondError(c, status, err.Error())
}

func (rs *RestServer) handleListSlots(c *gin.Context) {
	slots, err := rs.saves.ListSlots(c.Request.Context())
	if err != nil {
		rs.slotError(c, "list", err)
		return
	}
	respondOK(c, "Список слотов получен", gin.H{"slots": slots, "total": len(slots)})
}

// handleGetSlot возвращает метаданные и снимок слота, не загружая его в мир
func (rs *RestServer) handleGetSlot(c *gin.Context) {
	snap, info, err := rs.saves.ReadSlot(c.Request.Context(), c.Param("name"))
	if err != nil {
		rs.slotError(c, "read", err)
		return
	}
	respondOK(c, "Слот прочитан", gin.H{"info": info, "snapshot": snap})
}

// handleSaveSlot сохраняет текущий мир в слот
func (rs *RestServer) handleSaveSlot(c *gin.Context) {
	info, err := rs.session.SaveSlot(c.Request.Context(), rs.saves, c.Param("name"))
	if err != nil {
		rs.slotError(c, "save", err)
		return
	}
	respondOK(c, "Слот сохранён", info)
}

func (rs *RestServer) handleDeleteSlot(c *gin.Context) {
	if err := rs.saves.DeleteSlot(c.Request.Context(), c.Param("name")); err != nil {
		rs.slotError(c, "delete", err)
		return
	}
	respondOK(c, "Слот удалён", nil)
}

// handleLoadSlot загружает слот в мир; merge=true накладывает его поверх текущего
func (rs *RestServer) handleLoadSlot(c *gin.Context) {
	merge, err := parseMerge(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	n, err := rs.session.LoadSlot(c.Request.Context(), rs.saves, c.Param("name"), merge)
	if err != nil {
		rs.slotError(c, "load", err)
		return
	}
	respondOK(c, "Слот загружен", LoadResponse{Loaded: n, Merge: merge, History: rs.session.History()})
}

// Start запускает REST сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API запущен на %s", rs.port)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop закрывает поток изменений и останавливает сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.hub != nil {
		rs.hub.Close()
	}
	return rs.httpServer.Shutdown(ctx)
}
