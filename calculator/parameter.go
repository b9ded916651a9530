package calculator

import (
	"fmt"

	"batsim/model"
)

// 换算为国际单位后的计算参数
type parameter struct {
	Radius float64 // m
	Height float64 // m

	Lambda  float64 // 导热系数 W/m·K
	C       float64 // 比热容 J/kg·K
	Density float64 // 密度 kg/m³
	Alpha   float64 // 热扩散系数 k/(ρ·cp)

	InitialTemperature float64
	AmbientTemperature float64

	Capacity   float64 // Ah
	Voltage    float64 // V
	Resistance float64 // Ω

	DeltaT  float64 // s
	MaxTime float64 // s

	HEff float64 // 对流换热系数

	Nr, Nz int
	Dr, Dz float64
	MeshR  []float64
	MeshZ  []float64
}

func initParameters(p model.ThermalSimParameters, cfg Config) (*parameter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if cfg.ConvectiveCoefficient < 0 {
		return nil, fmt.Errorf("%w: convective coefficient %v", model.ErrInvalidParameter, cfg.ConvectiveCoefficient)
	}
	res := &parameter{
		Radius:             p.CellRadius / 1000.0,
		Height:             p.CellHeight / 1000.0,
		Lambda:             p.ThermalConductivity,
		C:                  p.SpecificHeatCapacity,
		Density:            p.Density,
		InitialTemperature: p.InitialTemperature,
		AmbientTemperature: p.AmbientTemperature,
		Capacity:           p.NominalCapacity / 1000.0,
		Voltage:            p.NominalVoltage,
		Resistance:         p.InternalResistance,
		DeltaT:             p.TimeStep,
		MaxTime:            p.MaxSimulationTime,
		HEff:               cfg.ConvectiveCoefficient,
		Nr:                 cfg.Nr,
		Nz:                 cfg.Nz,
	}
	res.Alpha = res.Lambda / (res.Density * res.C)

	// 均匀网格，两端都是节点
	res.MeshR = mesh(res.Radius, res.Nr)
	res.MeshZ = mesh(res.Height, res.Nz)
	res.Dr = res.MeshR[1] - res.MeshR[0]
	res.Dz = res.MeshZ[1] - res.MeshZ[0]
	return res, nil
}

func mesh(length float64, n int) []float64 {
	res := make([]float64, n)
	step := length / float64(n-1)
	for i := range res {
		res[i] = float64(i) * step
	}
	res[n-1] = length
	return res
}
