package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"batsim/calculator"
	"batsim/discharge"
	"batsim/model"
	"batsim/store"
)

type Config struct {
	Addr        string
	ReadBuffer  int
	WriteBuffer int
}

func LoadConfig(file *ini.File) Config {
	sec := file.Section("server")
	return Config{
		Addr:        sec.Key("addr").MustString(":9000"),
		ReadBuffer:  sec.Key("read_buffer").MustInt(1024),
		WriteBuffer: sec.Key("write_buffer").MustInt(1024),
	}
}

type Server struct {
	cfg      Config
	calcCfg  calculator.Config
	repo     store.Repository
	upgrader websocket.Upgrader
	router   *mux.Router
}

func NewServer(cfg Config, calcCfg calculator.Config, repo store.Repository) *Server {
	s := &Server{
		cfg:     cfg,
		calcCfg: calcCfg,
		repo:    repo,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBuffer,
			WriteBufferSize: cfg.WriteBuffer,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		router: mux.NewRouter(),
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/cells", s.getCellSpecs).Methods("GET")
	api.HandleFunc("/discharge", s.runDischarge).Methods("POST")
	api.HandleFunc("/discharge/{id}", s.getDischarge).Methods("GET")
	api.HandleFunc("/parameters/{id}", s.getParameters).Methods("GET")
	s.router.HandleFunc("/ws", s.serveWs)
	return s
}

func (s *Server) Handler() http.Handler {
	logged := handlers.LoggingHandler(log.StandardLogger().Writer(), s.router)
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(logged)
}

func (s *Server) Serve() error {
	log.WithField("addr", s.cfg.Addr).Info("服务启动")
	return http.ListenAndServe(s.cfg.Addr, s.Handler())
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade 失败")
		return
	}
	hub := NewHub(conn, s.repo, s.calcCfg)
	defer hub.Close()

	go hub.handleResponse()
	for {
		var cmd model.Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Info("websocket 连接断开")
			}
			return
		}
		hub.handleRequest(cmd)
	}
}

func (s *Server) getCellSpecs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cell, err := s.repo.GetCell(r.Context(), q.Get("cell_type"), q.Get("form_factor"))
	if errors.Is(err, model.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Cell specifications not found"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cell)
}

type dischargeRequest struct {
	CellType   string `json:"cell_type" validate:"required"`
	FormFactor string `json:"form_factor" validate:"required"`
	model.DischargeRunParameters
}

type dischargeResponse struct {
	*model.DischargeRecord
	Cell *model.BatteryCellSpec `json:"cell"`
}

func (s *Server) runDischarge(w http.ResponseWriter, r *http.Request) {
	var req dischargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := model.Validate(&req); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	cell, err := store.GetOrCreateCell(ctx, s.repo, req.CellType, req.FormFactor)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := discharge.Run(req.DischargeRunParameters, cell)
	if err != nil {
		writeError(w, err)
		return
	}

	record := &model.DischargeRecord{
		CellType:   cell.CellType,
		FormFactor: cell.FormFactor,
		Parameters: req.DischargeRunParameters,
		Result:     result,
	}
	if err := s.repo.SaveResult(ctx, record); err != nil {
		writeError(w, err)
		return
	}
	log.WithFields(log.Fields{
		"id":   record.Id,
		"cell": cell.CellType + "/" + cell.FormFactor,
	}).Info("放电仿真")
	writeJSON(w, http.StatusCreated, dischargeResponse{DischargeRecord: record, Cell: cell})
}

func (s *Server) getDischarge(w http.ResponseWriter, r *http.Request) {
	record, err := s.repo.GetResult(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) getParameters(w http.ResponseWriter, r *http.Request) {
	p, err := s.repo.GetParameters(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidState):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("请求处理失败")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("写入响应失败")
	}
}
