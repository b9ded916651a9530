package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batsim/calculator"
	"batsim/model"
	"batsim/store"
)

func newTestServer(t *testing.T, stepInterval time.Duration) (*httptest.Server, *store.Store) {
	calcCfg := calculator.DefaultConfig()
	calcCfg.StepInterval = stepInterval
	repo := store.NewMemoryStore("test")
	s := NewServer(Config{Addr: ":0", ReadBuffer: 1024, WriteBuffer: 1024}, calcCfg, repo)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, repo
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestDischargeAPI(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	resp := get(t, ts.URL+"/api/cells?cell_type=li_ion_phosphate&form_factor=cylindrical")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/discharge", `{
		"cell_type": "li_ion_phosphate", "form_factor": "cylindrical",
		"load_resistance": 1.0, "initial_soc": 100, "temperature": 25, "simulation_duration": 60}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Id     string                   `json:"id"`
		Cell   model.BatteryCellSpec    `json:"cell"`
		Result model.DischargeRunResult `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.Id)
	assert.Equal(t, 2500.0, created.Cell.Capacity)
	assert.Len(t, created.Result.SOC.SOC, 360)
	assert.Equal(t, 100.0, created.Result.SOC.SOC[0])

	// 默认电芯已经创建
	resp = get(t, ts.URL+"/api/cells?cell_type=li_ion_phosphate&form_factor=cylindrical")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cell model.BatteryCellSpec
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cell))
	assert.Equal(t, 3.2, cell.NominalVoltage)
	assert.Greater(t, cell.Volume, 0.0)

	resp = get(t, ts.URL+"/api/discharge/"+created.Id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var record model.DischargeRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
	assert.Equal(t, created.Id, record.Id)
	assert.Equal(t, 60, record.Parameters.SimulationDuration)

	resp = get(t, ts.URL+"/api/discharge/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDischargeAPIInvalid(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	bodies := []string{
		`{"cell_type": "nimh", "form_factor": "pouch", "load_resistance": 0, "initial_soc": 50, "simulation_duration": 10}`,
		`{"cell_type": "nimh", "form_factor": "pouch", "load_resistance": 1, "initial_soc": 150, "simulation_duration": 10}`,
		`{"form_factor": "pouch", "load_resistance": 1, "initial_soc": 50, "simulation_duration": 10}`,
		`{"cell_type": "graphene", "form_factor": "pouch", "load_resistance": 1, "initial_soc": 50, "simulation_duration": 10}`,
		`not json`,
	}
	for _, b := range bodies {
		resp := postJSON(t, ts.URL+"/api/discharge", b)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, b)
	}
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wsMsg struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	ParamId string          `json:"param_id"`
	Data    *model.Snapshot `json:"data"`
}

func read(t *testing.T, conn *websocket.Conn) wsMsg {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wsMsg
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// 跳过 update，直到读到指定类型
func readUntil(t *testing.T, conn *websocket.Conn, typ string) wsMsg {
	for {
		msg := read(t, conn)
		if msg.Type == typ {
			return msg
		}
		require.Equal(t, model.MsgUpdate, msg.Type, "unexpected %+v", msg)
	}
}

func TestWebsocketRunToCompletion(t *testing.T) {
	ts, repo := newTestServer(t, 0)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"command": model.CmdStart,
		"parameters": map[string]interface{}{
			"time_step":           1,
			"max_simulation_time": 5,
			"current_profile":     map[string]float64{"0": 1, "5": 3},
		},
	}))

	started := read(t, conn)
	require.Equal(t, model.MsgStarted, started.Type)
	require.NotEmpty(t, started.ParamId)

	for k := 1; k <= 5; k++ {
		msg := read(t, conn)
		require.Equal(t, model.MsgUpdate, msg.Type)
		require.NotNil(t, msg.Data)
		assert.InDelta(t, float64(k), msg.Data.Time, 1e-9)
		assert.InDelta(t, 1+0.4*float64(k-1), msg.Data.Current, 1e-9)
		assert.Len(t, msg.Data.TempField, 10)
		assert.GreaterOrEqual(t, msg.Data.MaxTemp, msg.Data.MinTemp)
	}
	finished := read(t, conn)
	assert.Equal(t, model.MsgFinished, finished.Type)
	assert.Equal(t, started.ParamId, finished.ParamId)

	// 参数已保存，其余字段取默认值
	p, err := repo.GetParameters(context.Background(), started.ParamId)
	require.NoError(t, err)
	assert.Equal(t, 5.0, p.MaxSimulationTime)
	assert.Equal(t, 9.0, p.CellRadius)

	resp := get(t, ts.URL+"/api/parameters/"+started.ParamId)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// 按 param_id 再次启动
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"command": model.CmdStart, "param_id": started.ParamId}))
	again := read(t, conn)
	assert.Equal(t, model.MsgStarted, again.Type)
	assert.Equal(t, started.ParamId, again.ParamId)
	readUntil(t, conn, model.MsgFinished)
}

func TestWebsocketControl(t *testing.T) {
	ts, _ := newTestServer(t, time.Millisecond)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]string{"command": model.CmdPause}))
	assert.Equal(t, model.MsgError, read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"command": "launch"}))
	assert.Equal(t, model.MsgError, read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"command":    model.CmdStart,
		"parameters": map[string]interface{}{"time_step": 0.1, "max_simulation_time": 1e6},
	}))
	started := read(t, conn)
	require.Equal(t, model.MsgStarted, started.Type)
	assert.Equal(t, model.MsgUpdate, read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"command": model.CmdPause}))
	readUntil(t, conn, model.MsgPaused)
	require.NoError(t, conn.WriteJSON(map[string]string{"command": model.CmdPause}))
	readUntil(t, conn, model.MsgPaused)

	require.NoError(t, conn.WriteJSON(map[string]string{"command": model.CmdResume}))
	readUntil(t, conn, model.MsgResumed)
	assert.Equal(t, model.MsgUpdate, read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"command":    model.CmdUpdateParameters,
		"param_id":   started.ParamId,
		"parameters": map[string]interface{}{"current_profile": map[string]float64{"0": 5}},
	}))
	updated := readUntil(t, conn, model.MsgParametersUpdated)
	assert.Equal(t, started.ParamId, updated.ParamId)
	msg := read(t, conn)
	for msg.Type == model.MsgUpdate && msg.Data.Current != 5 {
		msg = read(t, conn)
	}
	require.Equal(t, model.MsgUpdate, msg.Type)
	assert.Equal(t, 5.0, msg.Data.Current)

	require.NoError(t, conn.WriteJSON(map[string]string{"command": model.CmdStop}))
	readUntil(t, conn, model.MsgStopped)

	require.NoError(t, conn.WriteJSON(map[string]string{"command": model.CmdResume}))
	readUntil(t, conn, model.MsgError)
}

func TestWebsocketDivergingRun(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"command": model.CmdStart,
		"parameters": map[string]interface{}{
			"time_step":           1e4,
			"max_simulation_time": 3e6,
			"current_profile":     map[string]float64{"0": 10},
		},
	}))
	require.Equal(t, model.MsgStarted, read(t, conn).Type)

	updates := 0
	for {
		msg := read(t, conn)
		if msg.Type != model.MsgUpdate {
			assert.Equal(t, model.MsgError, msg.Type)
			assert.Contains(t, msg.Content, "numerical instability")
			break
		}
		updates++
	}
	assert.Greater(t, updates, 0)
	assert.Less(t, updates, 300)

	// 连接仍然可用
	require.NoError(t, conn.WriteJSON(map[string]string{"command": model.CmdPause}))
	assert.Equal(t, model.MsgError, read(t, conn).Type)
}

func TestWebsocketInvalidParameters(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"command":    model.CmdStart,
		"parameters": map[string]interface{}{"current_profile": map[string]float64{}},
	}))
	msg := read(t, conn)
	assert.Equal(t, model.MsgError, msg.Type)
	assert.Contains(t, msg.Content, "invalid parameter")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"command": model.CmdStart, "param_id": "missing"}))
	msg = read(t, conn)
	assert.Equal(t, model.MsgError, msg.Type)
	assert.Contains(t, msg.Content, "not found")
}
