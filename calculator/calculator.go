package calculator

import (
	"context"

	"batsim/model"
)

// calculator 的接口定义

type Calculator interface {
	// 启动计算循环，仅在 Idle 状态下有效
	Start(ctx context.Context) error
	Pause() error
	Resume() error
	// 任意状态下均可调用，之后不可再启动
	Stop()

	State() State
	// 每一步计算完成后的快照，循环退出后关闭
	Snapshots() <-chan model.Snapshot
	// 循环退出后关闭
	Done() <-chan struct{}
	Err() error

	// 电流曲线插值
	GetCurrent(t float64) float64
}

type State int32

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}
