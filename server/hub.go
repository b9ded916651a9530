package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"batsim/calculator"
	"batsim/model"
	"batsim/store"
)

// 一次仿真运行
type run struct {
	c       calculator.Calculator
	paramId string
	// 由用户停止，而不是计算到最大时间
	stopped atomic.Bool
}

func (r *run) stop() {
	r.stopped.Store(true)
	r.c.Stop()
}

// Hub 对应一个 websocket 连接，同一时间最多驱动一个计算器
type Hub struct {
	conn    *websocket.Conn
	repo    store.ParameterStore
	calcCfg calculator.Config

	ctx    context.Context
	cancel context.CancelFunc

	// 仅在读循环中访问
	current *run

	// response，由 handleResponse 统一写出
	send chan model.Msg
}

func NewHub(conn *websocket.Conn, repo store.ParameterStore, calcCfg calculator.Config) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		conn:    conn,
		repo:    repo,
		calcCfg: calcCfg,
		ctx:     ctx,
		cancel:  cancel,
		send:    make(chan model.Msg, 64),
	}
}

func (h *Hub) Close() {
	if h.current != nil {
		h.current.stop()
		h.current = nil
	}
	h.cancel()
	h.conn.Close()
}

func (h *Hub) handleResponse() {
	for {
		select {
		case msg := <-h.send:
			if err := h.conn.WriteJSON(&msg); err != nil {
				log.WithError(err).Warn("websocket 写入失败")
			}
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) reply(msg model.Msg) {
	select {
	case h.send <- msg:
	case <-h.ctx.Done():
	}
}

func (h *Hub) replyError(err error) {
	h.reply(model.Msg{Type: model.MsgError, Content: err.Error()})
}

func (h *Hub) handleRequest(cmd model.Command) {
	switch cmd.Command {
	case model.CmdStart:
		p, err := h.loadParameters(cmd)
		if err != nil {
			h.replyError(err)
			return
		}
		if err := h.startCalculator(p, model.MsgStarted); err != nil {
			h.replyError(err)
		}
	case model.CmdPause:
		if h.current == nil {
			h.replyError(fmt.Errorf("%w: no simulation", model.ErrInvalidState))
			return
		}
		if err := h.current.c.Pause(); err != nil {
			h.replyError(err)
			return
		}
		h.reply(model.Msg{Type: model.MsgPaused})
	case model.CmdResume:
		if h.current == nil {
			h.replyError(fmt.Errorf("%w: no simulation", model.ErrInvalidState))
			return
		}
		if err := h.current.c.Resume(); err != nil {
			h.replyError(err)
			return
		}
		h.reply(model.Msg{Type: model.MsgResumed})
	case model.CmdStop:
		if h.current == nil {
			h.replyError(fmt.Errorf("%w: no simulation", model.ErrInvalidState))
			return
		}
		h.current.stop()
		h.current = nil
		h.reply(model.Msg{Type: model.MsgStopped})
	case model.CmdUpdateParameters:
		p, err := h.repo.UpdateParameters(h.ctx, cmd.ParamId, cmd.Parameters)
		if err != nil {
			h.replyError(err)
			return
		}
		if err := h.startCalculator(p, model.MsgParametersUpdated); err != nil {
			h.replyError(err)
		}
	default:
		log.WithField("command", cmd.Command).Warn("no such command")
		h.replyError(fmt.Errorf("%w: unknown command %q", model.ErrInvalidParameter, cmd.Command))
	}
}

// 有 param_id 时读取已保存的参数，否则在默认参数上覆盖请求中的字段并保存
func (h *Hub) loadParameters(cmd model.Command) (*model.ThermalSimParameters, error) {
	if cmd.ParamId != "" {
		return h.repo.GetParameters(h.ctx, cmd.ParamId)
	}
	p := model.DefaultThermalSimParameters()
	if len(cmd.Parameters) > 0 {
		if err := json.Unmarshal(cmd.Parameters, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidParameter, err)
		}
	}
	p.Id = ""
	if err := h.repo.SaveParameters(h.ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// 停掉正在运行的计算器，用新参数重新开始
func (h *Hub) startCalculator(p *model.ThermalSimParameters, replyType string) error {
	c, err := calculator.NewThermalCalculator(*p, h.calcCfg)
	if err != nil {
		return err
	}
	if h.current != nil {
		h.current.stop()
	}
	r := &run{c: c, paramId: p.Id}
	h.current = r

	// 先回复，保证 started 在第一个 update 之前
	h.reply(model.Msg{Type: replyType, ParamId: p.Id})
	if err := c.Start(h.ctx); err != nil {
		return err
	}
	go h.forward(r)
	return nil
}

// 把计算器的快照转发给前端，直到计算器结束
func (h *Hub) forward(r *run) {
	for s := range r.c.Snapshots() {
		if r.stopped.Load() {
			continue
		}
		h.reply(model.Msg{Type: model.MsgUpdate, Data: s})
	}
	if err := r.c.Err(); err != nil {
		h.replyError(err)
		return
	}
	if !r.stopped.Load() {
		h.reply(model.Msg{Type: model.MsgFinished, ParamId: r.paramId})
	}
}
