package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/annel0/voxel-builder/internal/app"
	"github.com/annel0/voxel-builder/internal/eventbus"
	"github.com/annel0/voxel-builder/internal/logging"
	"github.com/annel0/voxel-builder/internal/snapshot"
	"github.com/annel0/voxel-builder/internal/storage"
	"github.com/annel0/voxel-builder/internal/tools"
	"github.com/annel0/voxel-builder/internal/vec"
	"github.com/annel0/voxel-builder/internal/world"
	"github.com/annel0/voxel-builder/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logging.SetLogDir("")
	os.Exit(m.Run())
}

type fixture struct {
	server  *RestServer
	session *app.Session
	hub     *Hub
}

func newFixture(t *testing.T, withSaves bool) *fixture {
	t.Helper()

	hub := NewHub()
	session := app.NewSession(nil, app.WithChangeSink(hub.OnChange))
	cfg := Config{Session: session, Hub: hub}
	if withSaves {
		cfg.Saves = storage.NewSaveManager(storage.NewMemorySlotStore())
	}
	t.Cleanup(hub.Close)
	return &fixture{server: NewRestServer(cfg), session: session, hub: hub}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	var resp GenericResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

// decodeData перекладывает поле data ответа в out
func decodeData(t *testing.T, resp GenericResponse, out interface{}) {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func click(x, y, z int) PointerRequest {
	return PointerRequest{Hit: &HitRequest{Pos: &vec.Vec3{X: x, Y: y, Z: z}, Normal: [3]float64{0, 1, 0}}}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)
	w, _ := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestClickUndoRedo(t *testing.T) {
	f := newFixture(t, false)

	w, resp := f.do(t, http.MethodPost, "/api/tool/click", click(0, 0, 0))
	require.Equal(t, http.StatusOK, w.Code)
	var tr ToolResponse
	decodeData(t, resp, &tr)
	assert.Equal(t, tools.ActionPlace, tr.Result.Action)
	assert.Equal(t, 1, tr.Result.Affected)
	assert.True(t, tr.History.CanUndo)

	w, resp = f.do(t, http.MethodGet, "/api/blocks/0,1,0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var br BlockResponse
	decodeData(t, resp, &br)
	assert.Equal(t, vec.Key("0,1,0"), br.Key)
	assert.Equal(t, block.Stone, br.Block.Type)

	w, resp = f.do(t, http.MethodPost, "/api/history/undo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hr HistoryResponse
	decodeData(t, resp, &hr)
	assert.True(t, hr.Applied)
	assert.Equal(t, 1, hr.History.Future)

	w, _ = f.do(t, http.MethodGet, "/api/blocks/0,1,0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, resp = f.do(t, http.MethodPost, "/api/history/redo", nil)
	decodeData(t, resp, &hr)
	assert.True(t, hr.Applied)

	_, resp = f.do(t, http.MethodPost, "/api/history/redo", nil)
	decodeData(t, resp, &hr)
	assert.False(t, hr.Applied, "повторять нечего")
}

func TestPointerValidation(t *testing.T) {
	f := newFixture(t, false)

	cases := []interface{}{
		[]byte(`{not json`),
		PointerRequest{Button: "middle"},
		PointerRequest{Hit: &HitRequest{Normal: [3]float64{0, 1, 0}}},
		PointerRequest{Hit: &HitRequest{Key: "1, 2,3", Normal: [3]float64{0, 1, 0}}},
		PointerRequest{Hit: &HitRequest{Key: "1,2,3"}},
	}
	for _, body := range cases {
		w, resp := f.do(t, http.MethodPost, "/api/tool/click", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp.Success)
	}
	assert.Equal(t, 0, f.session.Stats().Blocks)

	// Промах луча не является ошибкой
	w, resp := f.do(t, http.MethodPost, "/api/tool/click", PointerRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	var tr ToolResponse
	decodeData(t, resp, &tr)
	assert.Equal(t, 0, tr.Result.Affected)
}

func TestGetBlock_BadKey(t *testing.T) {
	f := newFixture(t, false)
	w, _ := f.do(t, http.MethodGet, "/api/blocks/01,2,3", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrecisionBrushStroke(t *testing.T) {
	f := newFixture(t, false)

	down := click(0, 0, 0)
	down.Modifiers.Precision = true
	_, resp := f.do(t, http.MethodPost, "/api/brush/down", down)
	var tr ToolResponse
	decodeData(t, resp, &tr)
	assert.True(t, tr.History.InStroke)

	move := click(1, 0, 0)
	move.Modifiers.Precision = true
	f.do(t, http.MethodPost, "/api/brush/move", move)

	_, resp = f.do(t, http.MethodPost, "/api/brush/up", move)
	decodeData(t, resp, &tr)
	assert.False(t, tr.History.InStroke)
	assert.Equal(t, 1, tr.History.Past, "штрих кистью даёт одну запись истории")
	assert.Equal(t, 2, f.session.Stats().Blocks)
}

func TestSelection(t *testing.T) {
	f := newFixture(t, false)

	w, resp := f.do(t, http.MethodGet, "/api/selection", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sel SelectionDTO
	decodeData(t, resp, &sel)
	assert.Equal(t, tools.ToolBrush, sel.Tool)

	rot := block.Rotation{Y: 90}
	sel.Tool = tools.ToolFill
	sel.Block = snapshot.BlockData{Type: block.Brick, Variant: block.VariantStairs, Rotation: &rot}
	w, resp = f.do(t, http.MethodPut, "/api/selection", sel)
	require.Equal(t, http.StatusOK, w.Code)
	var got SelectionDTO
	decodeData(t, resp, &got)
	assert.Equal(t, tools.ToolFill, got.Tool)
	assert.Equal(t, block.VariantStairs, got.Block.Variant)
	assert.Equal(t, tools.ToolFill, f.session.Selection().Tool)

	sel.Tool = "hammer"
	w, _ = f.do(t, http.MethodPut, "/api/selection", sel)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, tools.ToolFill, f.session.Selection().Tool)
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, http.MethodPost, "/api/tool/click", click(0, 0, 0))
	f.do(t, http.MethodPost, "/api/tool/click", click(2, 0, 0))

	for _, format := range []string{"json", "zst"} {
		w, _ := f.do(t, http.MethodGet, "/api/snapshot?format="+format, nil)
		require.Equal(t, http.StatusOK, w.Code)
		exported := w.Body.Bytes()

		other := newFixture(t, false)
		w, resp := other.do(t, http.MethodPut, "/api/snapshot", exported)
		require.Equal(t, http.StatusOK, w.Code, format)
		var lr LoadResponse
		decodeData(t, resp, &lr)
		assert.Equal(t, 2, lr.Loaded)
		assert.False(t, lr.History.CanUndo)
		assert.Equal(t, f.session.Capture(), other.session.Capture())
	}

	w, _ := f.do(t, http.MethodGet, "/api/snapshot?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/snapshot/schema", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"blocks"`)
}

func TestPutSnapshot_InvalidKeepsWorld(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, http.MethodPost, "/api/tool/click", click(0, 0, 0))
	before := f.session.Capture()

	bodies := [][]byte{
		[]byte(`{"version":2,"blocks":[]}`),
		[]byte(`{"version":1}`),
		[]byte(`{"version":1,"blocks":[["1,2","{}"]]}`),
		[]byte(`garbage`),
	}
	for _, body := range bodies {
		w, _ := f.do(t, http.MethodPut, "/api/snapshot", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, string(body))
	}
	assert.Equal(t, before, f.session.Capture())

	w, _ := f.do(t, http.MethodPut, "/api/snapshot?merge=maybe", []byte(`{"version":1,"blocks":[]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutSnapshot_Merge(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, http.MethodPost, "/api/tool/click", click(0, 0, 0))

	body := []byte(`{"version":1,"blocks":[["5,0,0",{"type":"sand"}]]}`)
	w, _ := f.do(t, http.MethodPut, "/api/snapshot?merge=true", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, f.session.Stats().Blocks)
}

func TestSlots(t *testing.T) {
	f := newFixture(t, true)
	f.do(t, http.MethodPost, "/api/tool/click", click(0, 0, 0))

	w, resp := f.do(t, http.MethodPut, "/api/slots/tower", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info storage.SlotInfo
	decodeData(t, resp, &info)
	assert.Equal(t, "tower", info.Name)
	assert.Equal(t, 1, info.Blocks)

	w, _ = f.do(t, http.MethodGet, "/api/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tower"`)

	w, _ = f.do(t, http.MethodGet, "/api/slots/tower", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"0,1,0"`)

	f.do(t, http.MethodPost, "/api/history/undo", nil)
	assert.Equal(t, 0, f.session.Stats().Blocks)

	w, resp = f.do(t, http.MethodPost, "/api/slots/tower/load", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lr LoadResponse
	decodeData(t, resp, &lr)
	assert.Equal(t, 1, lr.Loaded)
	assert.Equal(t, 1, f.session.Stats().Blocks)

	w, _ = f.do(t, http.MethodPut, "/api/slots/bad%20name", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodDelete, "/api/slots/tower", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = f.do(t, http.MethodGet, "/api/slots/tower", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = f.do(t, http.MethodPost, "/api/slots/tower/load", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSlots_NotConfigured(t *testing.T) {
	f := newFixture(t, false)
	w, _ := f.do(t, http.MethodGet, "/api/slots", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatsAndMetrics(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, http.MethodPost, "/api/tool/click", click(0, 0, 0))

	w, resp := f.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Editor app.Stats    `json:"editor"`
		Server ProcessStats `json:"server"`
	}
	decodeData(t, resp, &stats)
	assert.Equal(t, 1, stats.Editor.Blocks)
	assert.Positive(t, stats.Server.Goroutines)

	w, _ = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "editor_api")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, false)
	w, _ := f.do(t, http.MethodOptions, "/api/tool/click", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func readStream(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestChangeStream(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, http.MethodPost, "/api/tool/click", click(0, 0, 0))

	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := readStream(t, conn)
	require.Equal(t, MsgHello, msg.Type)
	var hello Hello
	require.NoError(t, json.Unmarshal(msg.Data, &hello))
	assert.NotEmpty(t, hello.ClientID)
	assert.Equal(t, 1, hello.Blocks)
	assert.Equal(t, f.session.Version(), hello.Version)

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	f.do(t, http.MethodPost, "/api/tool/click", click(3, 0, 0))

	msg = readStream(t, conn)
	require.Equal(t, MsgChange, msg.Type)
	var ch eventbus.BlockChanged
	require.NoError(t, json.Unmarshal(msg.Data, &ch))
	assert.Equal(t, world.ChangePlaced.String(), ch.Kind)
	assert.Equal(t, "3,1,0", ch.Key)
	require.NotNil(t, ch.Block)
	assert.Equal(t, block.Stone, ch.Block.Type)
	assert.Equal(t, hello.Version+1, ch.Version)
}

func TestHub_CloseDisconnects(t *testing.T) {
	f := newFixture(t, false)
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	readStream(t, conn)

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	f.hub.Close()
	assert.Equal(t, 0, f.hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "ожидали нормальное закрытие, получили %v", err)
}
