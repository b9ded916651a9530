package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// 电芯规格，几何尺寸单位 mm
type BatteryCellSpec struct {
	CellType   string  `json:"cell_type" validate:"required,oneof=li_ion_phosphate li_ion_cobalt nimh lead_acid"`
	FormFactor string  `json:"form_factor" validate:"required,oneof=cylindrical prismatic pouch"`
	Length     float64 `json:"length" validate:"gt=0"`
	Diameter   float64 `json:"diameter" validate:"required_if=FormFactor cylindrical,gte=0"`
	Height     float64 `json:"height" validate:"required_unless=FormFactor cylindrical,gte=0"`
	Width      float64 `json:"width" validate:"required_unless=FormFactor cylindrical,gte=0"`
	Volume     float64 `json:"volume"` // cm³，由 UpdateVolume 计算

	// 电气参数
	NominalVoltage     float64 `json:"nominal_voltage" validate:"gt=0"`     // V
	Capacity           float64 `json:"capacity" validate:"gt=0"`            // mAh
	EnergyDensity      float64 `json:"energy_density" validate:"gte=0"`     // Wh/kg
	InternalResistance float64 `json:"internal_resistance" validate:"gt=0"` // mΩ
	HeatResistance     float64 `json:"heat_resistance" validate:"gt=0"`     // K/W

	MaxDischargeCurrent float64 `json:"max_discharge_current" validate:"gte=0"` // A
	MaxChargeCurrent    float64 `json:"max_charge_current" validate:"gte=0"`    // A
	CycleLife           int     `json:"cycle_life" validate:"gte=0"`
}

// 根据外形重新计算体积，mm³ -> cm³
func (c *BatteryCellSpec) UpdateVolume() float64 {
	switch c.FormFactor {
	case FormCylindrical:
		c.Volume = math.Pi * (c.Diameter / 2) * (c.Diameter / 2) * c.Length / 1000
	case FormPrismatic, FormPouch:
		c.Volume = c.Length * c.Width * c.Height / 1000
	default:
		c.Volume = 0
	}
	return c.Volume
}

// 放电仿真输入
type DischargeRunParameters struct {
	LoadResistance     float64 `json:"load_resistance" validate:"gt=0"`              // Ω
	InitialSOC         float64 `json:"initial_soc" validate:"gte=0,lte=100"`         // %
	Temperature        float64 `json:"temperature"`                                  // 环境温度 ℃
	SimulationDuration int     `json:"simulation_duration" validate:"gt=0,lte=1440"` // min，最长一天
}

// 各个时间序列，time 单位为 min
type EMFSeries struct {
	Time []float64 `json:"time"`
	EMF  []float64 `json:"emf"`
}

type VoltageSeries struct {
	Time    []float64 `json:"time"`
	Voltage []float64 `json:"voltage"`
}

type CurrentSeries struct {
	Time    []float64 `json:"time"`
	Current []float64 `json:"current"`
}

// soc 为 0-1 的比例
type ResistanceSeries struct {
	Time       []float64 `json:"time"`
	Resistance []float64 `json:"resistance"`
	SOC        []float64 `json:"soc"`
}

// soc 为百分比
type SOCSeries struct {
	Time []float64 `json:"time"`
	SOC  []float64 `json:"soc"`
}

type TemperatureSeries struct {
	Time        []float64 `json:"time"`
	Temperature []float64 `json:"temperature"`
}

type DischargeRunResult struct {
	EMF             EMFSeries         `json:"emf_data"`
	TerminalVoltage VoltageSeries     `json:"terminal_voltage_data"`
	Current         CurrentSeries     `json:"current_data"`
	Resistance      ResistanceSeries  `json:"resistance_data"`
	SOC             SOCSeries         `json:"soc_data"`
	Temperature     TemperatureSeries `json:"temperature_data"`
}

// 持久化后的放电仿真记录
type DischargeRecord struct {
	Id         string                 `json:"id"`
	CreatedAt  time.Time              `json:"created_at"`
	CellType   string                 `json:"cell_type"`
	FormFactor string                 `json:"form_factor"`
	Parameters DischargeRunParameters `json:"parameters"`
	Result     *DischargeRunResult    `json:"result"`
}

// 电流曲线，时间(s) -> 电流(A)，分段线性
type CurrentProfile map[float64]float64

// json 的 key 只能是字符串，这里兼容 "10" 和 "10.5" 两种写法
func (p *CurrentProfile) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: current profile: %v", ErrInvalidParameter, err)
	}
	profile := make(CurrentProfile, len(raw))
	for k, v := range raw {
		t, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return fmt.Errorf("%w: current profile time %q", ErrInvalidParameter, k)
		}
		profile[t] = v
	}
	*p = profile
	return nil
}

func (p CurrentProfile) MarshalJSON() ([]byte, error) {
	raw := make(map[string]float64, len(p))
	for k, v := range p {
		raw[strconv.FormatFloat(k, 'f', -1, 64)] = v
	}
	return json.Marshal(raw)
}

// 排好序的时间点
func (p CurrentProfile) Times() []float64 {
	times := make([]float64, 0, len(p))
	for t := range p {
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

// 热仿真参数
type ThermalSimParameters struct {
	Id                   string         `json:"id"`
	CellRadius           float64        `json:"cell_radius" validate:"gt=0"`            // mm
	CellHeight           float64        `json:"cell_height" validate:"gt=0"`            // mm
	ThermalConductivity  float64        `json:"thermal_conductivity" validate:"gt=0"`   // W/m·K
	SpecificHeatCapacity float64        `json:"specific_heat_capacity" validate:"gt=0"` // J/kg·K
	Density              float64        `json:"density" validate:"gt=0"`                // kg/m³
	InitialTemperature   float64        `json:"initial_temperature"`                    // ℃
	AmbientTemperature   float64        `json:"ambient_temperature"`                    // ℃
	NominalCapacity      float64        `json:"nominal_capacity" validate:"gte=0"`      // mAh
	NominalVoltage       float64        `json:"nominal_voltage" validate:"gte=0"`       // V
	InternalResistance   float64        `json:"internal_resistance" validate:"gte=0"`   // Ω
	TimeStep             float64        `json:"time_step" validate:"gt=0"`              // s
	MaxSimulationTime    float64        `json:"max_simulation_time" validate:"gt=0"`    // s
	CurrentProfile       CurrentProfile `json:"current_profile" validate:"min=1"`
}

func DefaultThermalSimParameters() ThermalSimParameters {
	return ThermalSimParameters{
		CellRadius:           9,
		CellHeight:           65,
		ThermalConductivity:  1.0,
		SpecificHeatCapacity: 1000,
		Density:              2500,
		InitialTemperature:   25,
		AmbientTemperature:   25,
		NominalCapacity:      2500,
		NominalVoltage:       3.2,
		InternalResistance:   0.025,
		TimeStep:             0.5,
		MaxSimulationTime:    3600,
		CurrentProfile:       CurrentProfile{0: 2.5},
	}
}

// 每一步推送的温度场快照
type Snapshot struct {
	Time        float64     `json:"time"`
	Current     float64     `json:"current"`
	CenterTemp  float64     `json:"center_temp"`
	SurfaceTemp float64     `json:"surface_temp"`
	TopTemp     float64     `json:"top_temp"`
	BottomTemp  float64     `json:"bottom_temp"`
	TempField   [][]float64 `json:"temp_field"`
	MinTemp     float64     `json:"min_temp"`
	MaxTemp     float64     `json:"max_temp"`
}

// 前后端通信消息结构
type Msg struct {
	Type    string      `json:"type"`
	Content string      `json:"content,omitempty"`
	ParamId string      `json:"param_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// 前端发来的命令
type Command struct {
	Command    string          `json:"command"`
	ParamId    string          `json:"param_id"`
	Parameters json.RawMessage `json:"parameters"`
}
