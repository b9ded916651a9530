package calculator

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"batsim/model"
)

// 圆柱电芯径向-轴向二维温度场，显式差分。
// 注意：没有对 deltaT 做稳定性（CFL）检查，步长过大时温度场会发散，
// 可以通过 Config.MaxFieldMagnitude 打开发散检查。
type ThermalCalculator struct {
	cfg       Config
	parameter *parameter
	profile   *currentProfile

	Field         [][]float64 // 当前温度场，[径向][轴向]
	thermalField  [][]float64 // 温度场容器
	thermalField1 [][]float64
	q             [][]float64 // 热流密度

	// 每计算一个 ▲t 切换一次
	alternating bool

	currentTime float64
	current     float64

	calcHub *CalcHub
}

var _ Calculator = (*ThermalCalculator)(nil)

func NewThermalCalculator(p model.ThermalSimParameters, cfg Config) (*ThermalCalculator, error) {
	cfg = cfg.normalize()
	profile, err := newCurrentProfile(p.CurrentProfile)
	if err != nil {
		return nil, err
	}
	parameter, err := initParameters(p, cfg)
	if err != nil {
		return nil, err
	}

	c := &ThermalCalculator{
		cfg:       cfg,
		parameter: parameter,
		profile:   profile,
		calcHub:   NewCalcHub(cfg.SnapshotBuffer),
	}
	c.thermalField = newField(parameter.Nr, parameter.Nz, parameter.InitialTemperature)
	c.thermalField1 = newField(parameter.Nr, parameter.Nz, parameter.InitialTemperature)
	c.q = newField(parameter.Nr, parameter.Nz, 0)
	c.Field = c.thermalField
	c.alternating = true
	c.current = c.profile.at(0)

	log.WithFields(log.Fields{
		"radius":  parameter.Radius,
		"height":  parameter.Height,
		"alpha":   parameter.Alpha,
		"dr":      parameter.Dr,
		"dz":      parameter.Dz,
		"deltaT":  parameter.DeltaT,
		"maxTime": parameter.MaxTime,
	}).Info("初始化热仿真参数")
	return c, nil
}

func (c *ThermalCalculator) GetCalcHub() *CalcHub {
	return c.calcHub
}

func (c *ThermalCalculator) GetCurrent(t float64) float64 {
	return c.profile.at(t)
}

func (c *ThermalCalculator) State() State {
	return c.calcHub.State()
}

func (c *ThermalCalculator) Snapshots() <-chan model.Snapshot {
	return c.calcHub.PeriodCalcResult
}

func (c *ThermalCalculator) Done() <-chan struct{} {
	return c.calcHub.Finished
}

func (c *ThermalCalculator) Err() error {
	return c.calcHub.Err()
}

func (c *ThermalCalculator) Start(ctx context.Context) error {
	if err := c.calcHub.StartSignal(); err != nil {
		return err
	}
	log.Info("开始热仿真")
	go c.run(ctx)
	return nil
}

func (c *ThermalCalculator) Pause() error {
	if err := c.calcHub.PauseSignal(); err != nil {
		return err
	}
	log.Info("暂停热仿真")
	return nil
}

func (c *ThermalCalculator) Resume() error {
	if err := c.calcHub.ResumeSignal(); err != nil {
		return err
	}
	log.Info("恢复热仿真")
	return nil
}

func (c *ThermalCalculator) Stop() {
	if c.calcHub.state.CompareAndSwap(int32(Idle), int32(Stopped)) {
		// 计算循环没有启动过，由这里关闭通道
		c.calcHub.StopSignal()
		close(c.calcHub.PeriodCalcResult)
		close(c.calcHub.Finished)
		return
	}
	c.calcHub.StopSignal()
	log.Info("停止热仿真")
}

// 计算循环运行期间读取没有同步保护，仅在 Done 之后读取才可靠
func (c *ThermalCalculator) SimulatedTime() float64 {
	return c.currentTime
}

// 计算循环，由 Start 在单独的 goroutine 中执行
func (c *ThermalCalculator) run(ctx context.Context) {
	defer close(c.calcHub.Finished)
	defer close(c.calcHub.PeriodCalcResult)

	steps := 0
	start := time.Now()
	defer func() {
		log.WithFields(log.Fields{
			"steps":    steps,
			"time":     c.currentTime,
			"duration": time.Since(start),
		}).Info("热仿真结束")
	}()

LOOP:
	for {
		select {
		case <-c.calcHub.Stop:
			break LOOP
		case <-ctx.Done():
			c.calcHub.StopSignal()
			break LOOP
		default:
		}

		if c.calcHub.State() == Paused {
			if !c.wait(ctx, c.cfg.PollInterval) {
				break LOOP
			}
			continue
		}

		if c.currentTime >= c.parameter.MaxTime {
			c.calcHub.StopSignal()
			break LOOP
		}

		snapshot := c.step()
		steps++
		if c.isDiverged(snapshot) {
			err := fmt.Errorf("%w: field range [%v, %v] at t=%v", model.ErrNumericalInstability, snapshot.MinTemp, snapshot.MaxTemp, snapshot.Time)
			log.WithError(err).Warn("温度场发散")
			c.calcHub.setErr(err)
			c.calcHub.StopSignal()
			break LOOP
		}

		select {
		case c.calcHub.PeriodCalcResult <- *snapshot:
		case <-c.calcHub.Stop:
			break LOOP
		case <-ctx.Done():
			c.calcHub.StopSignal()
			break LOOP
		}

		if c.cfg.StepInterval > 0 && !c.wait(ctx, c.cfg.StepInterval) {
			break LOOP
		}
	}
}

// 等待 d，期间收到停止信号返回 false
func (c *ThermalCalculator) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.calcHub.Stop:
		return false
	case <-ctx.Done():
		c.calcHub.StopSignal()
		return false
	}
}

// 推进一个 deltaT
func (c *ThermalCalculator) step() *model.Snapshot {
	c.current = c.profile.at(c.currentTime)
	c.calculateField(c.current)

	if c.alternating {
		c.Field = c.thermalField1
	} else {
		c.Field = c.thermalField
	}
	c.alternating = !c.alternating // 仅在这里修改

	c.currentTime += c.parameter.DeltaT
	return c.buildData()
}

// 写入的容器，与 c.Field 相反
func (c *ThermalCalculator) next() [][]float64 {
	if c.alternating {
		return c.thermalField1
	}
	return c.thermalField
}

// 从 c.Field 计算新的温度场写入另一个容器，c.Field 本身不修改
func (c *ThermalCalculator) calculateField(current float64) {
	p := c.parameter
	prev := c.Field
	field := c.next()

	calculateHeatDensity(current, p, c.q)

	dr, dz := p.Dr, p.Dz
	rhoC := p.Density * p.C
	for i := 1; i < p.Nr-1; i++ {
		r := p.MeshR[i]
		for j := 1; j < p.Nz-1; j++ {
			d2Tdr2 := (prev[i+1][j] - 2*prev[i][j] + prev[i-1][j]) / (dr * dr)
			dTdr := (prev[i+1][j] - prev[i-1][j]) / (2 * dr)
			d2Tdz2 := (prev[i][j+1] - 2*prev[i][j] + prev[i][j-1]) / (dz * dz)

			dTdt := p.Alpha*(d2Tdr2+dTdr/r+d2Tdz2) + c.q[i][j]/rhoC
			field[i][j] = prev[i][j] + dTdt*p.DeltaT
		}
	}

	c.calculateBoundary(field)
}

// 边界条件，依次覆盖：中心轴对称、外表面对流、上下端面对流
func (c *ThermalCalculator) calculateBoundary(field [][]float64) {
	p := c.parameter
	nr, nz := p.Nr, p.Nz

	for j := 0; j < nz; j++ {
		field[0][j] = field[1][j]
	}

	kr := p.Dr * p.HEff / p.Lambda
	for j := 0; j < nz; j++ {
		field[nr-1][j] = field[nr-2][j] - kr*(field[nr-2][j]-p.AmbientTemperature)
	}

	kz := p.Dz * p.HEff / p.Lambda
	for i := 0; i < nr; i++ {
		field[i][0] = field[i][1] - kz*(field[i][1]-p.AmbientTemperature)
		field[i][nz-1] = field[i][nz-2] - kz*(field[i][nz-2]-p.AmbientTemperature)
	}
}
