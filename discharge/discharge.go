// 放电模型：一次性算出整个放电过程，没有时间步进
package discharge

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"batsim/model"
)

const (
	SamplesPerMinute = 6    // 10s 一个采样点
	CRate            = 0.2  // C/5 放电
	MaxDuration      = 1440 // min
)

func Run(p model.DischargeRunParameters, cell *model.BatteryCellSpec) (*model.DischargeRunResult, error) {
	if cell == nil {
		return nil, fmt.Errorf("%w: cell is nil", model.ErrInvalidParameter)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.SimulationDuration > MaxDuration {
		return nil, fmt.Errorf("%w: simulation_duration %d exceeds %d min", model.ErrInvalidParameter, p.SimulationDuration, MaxDuration)
	}

	n := p.SimulationDuration * SamplesPerMinute
	t := linspace(0, float64(p.SimulationDuration), n)

	initialSOC := p.InitialSOC / 100.0
	capacityAh := cell.Capacity / 1000.0
	baseResistance := cell.InternalResistance / 1000.0 // mΩ -> Ω
	dischargeCurrent := capacityAh * CRate

	res := newResult(t)
	for k, minutes := range t {
		hours := minutes / 60.0

		soc := math.Max(initialSOC-hours*CRate/5.0, 0)
		r := baseResistance * (1 + 0.5*(1-soc))
		emf := cell.NominalVoltage * (0.9 + 0.2*soc)
		v := emf - dischargeCurrent*r
		i := v / (p.LoadResistance + r)
		heat := i * i * r

		res.EMF.EMF[k] = emf
		res.TerminalVoltage.Voltage[k] = v
		res.Current.Current[k] = i
		res.Resistance.Resistance[k] = r
		res.Resistance.SOC[k] = soc
		res.SOC.SOC[k] = soc * 100
		res.Temperature.Temperature[k] = p.Temperature + heat/cell.HeatResistance
	}

	log.WithFields(log.Fields{
		"cell":     cell.CellType + "/" + cell.FormFactor,
		"load":     p.LoadResistance,
		"soc":      p.InitialSOC,
		"duration": p.SimulationDuration,
		"samples":  n,
	}).Debug("放电仿真完成")
	return res, nil
}

// 所有序列共用同一个时间轴
func newResult(t []float64) *model.DischargeRunResult {
	n := len(t)
	return &model.DischargeRunResult{
		EMF:             model.EMFSeries{Time: t, EMF: make([]float64, n)},
		TerminalVoltage: model.VoltageSeries{Time: t, Voltage: make([]float64, n)},
		Current:         model.CurrentSeries{Time: t, Current: make([]float64, n)},
		Resistance:      model.ResistanceSeries{Time: t, Resistance: make([]float64, n), SOC: make([]float64, n)},
		SOC:             model.SOCSeries{Time: t, SOC: make([]float64, n)},
		Temperature:     model.TemperatureSeries{Time: t, Temperature: make([]float64, n)},
	}
}

// 包含两端点的等间距采样
func linspace(start, end float64, n int) []float64 {
	res := make([]float64, n)
	if n == 1 {
		res[0] = start
		return res
	}
	step := (end - start) / float64(n-1)
	for i := range res {
		res[i] = start + float64(i)*step
	}
	res[n-1] = end
	return res
}
