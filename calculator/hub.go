package calculator

import (
	"fmt"
	"sync"
	"sync/atomic"

	"batsim/model"
)

// CalcHub 负责计算循环与外部控制之间的信号传递。
// 状态用原子量保存，计算循环在每一步开始时读取，控制命令最多晚一步生效。
type CalcHub struct {
	state atomic.Int32

	Stop     chan struct{}
	stopOnce sync.Once
	Finished chan struct{}

	// 温度场推送
	PeriodCalcResult chan model.Snapshot

	mu  sync.Mutex
	err error
}

func NewCalcHub(buffer int) *CalcHub {
	return &CalcHub{
		Stop:             make(chan struct{}),
		Finished:         make(chan struct{}),
		PeriodCalcResult: make(chan model.Snapshot, buffer),
	}
}

func (ch *CalcHub) State() State {
	return State(ch.state.Load())
}

func (ch *CalcHub) StartSignal() error {
	if !ch.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return fmt.Errorf("%w: start while %s", model.ErrInvalidState, ch.State())
	}
	return nil
}

func (ch *CalcHub) PauseSignal() error {
	if ch.state.CompareAndSwap(int32(Running), int32(Paused)) {
		return nil
	}
	if s := ch.State(); s != Paused {
		return fmt.Errorf("%w: pause while %s", model.ErrInvalidState, s)
	}
	return nil
}

func (ch *CalcHub) ResumeSignal() error {
	if ch.state.CompareAndSwap(int32(Paused), int32(Running)) {
		return nil
	}
	if s := ch.State(); s != Running {
		return fmt.Errorf("%w: resume while %s", model.ErrInvalidState, s)
	}
	return nil
}

func (ch *CalcHub) StopSignal() {
	ch.state.Store(int32(Stopped))
	ch.stopOnce.Do(func() {
		close(ch.Stop)
	})
}

// 计算循环异常退出时记录原因
func (ch *CalcHub) setErr(err error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.err == nil {
		ch.err = err
	}
}

func (ch *CalcHub) Err() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.err
}
