package calculator

import (
	"fmt"
	"math"
	"sort"

	"batsim/model"
)

// 电流曲线，时间升序
type currentProfile struct {
	times  []float64
	values []float64
}

func newCurrentProfile(p model.CurrentProfile) (*currentProfile, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty current profile", model.ErrInvalidParameter)
	}
	cp := &currentProfile{times: p.Times()}
	cp.values = make([]float64, len(cp.times))
	for i, t := range cp.times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: current profile time %v", model.ErrInvalidParameter, t)
		}
		cp.values[i] = p[t]
	}
	return cp, nil
}

// 分段线性插值，超出范围取边界值
func (cp *currentProfile) at(t float64) float64 {
	last := len(cp.times) - 1
	if t <= cp.times[0] {
		return cp.values[0]
	}
	if t >= cp.times[last] {
		return cp.values[last]
	}
	// times[i] >= t 的第一个下标
	i := sort.SearchFloat64s(cp.times, t)
	if cp.times[i] == t {
		return cp.values[i]
	}
	t1, t2 := cp.times[i-1], cp.times[i]
	i1, i2 := cp.values[i-1], cp.values[i]
	return i1 + (i2-i1)*(t-t1)/(t2-t1)
}

// 焦耳热只分布在径向最内侧 1/3 的节点上，单位 W/m³
func calculateHeatDensity(current float64, p *parameter, q [][]float64) {
	joule := current * current * p.Resistance
	core := p.Nr / 3
	density := joule / (math.Pi * (p.Radius / 3) * (p.Radius / 3) * p.Height)
	for i := 0; i < p.Nr; i++ {
		v := 0.0
		if i < core {
			v = density
		}
		for j := 0; j < p.Nz; j++ {
			q[i][j] = v
		}
	}
}

func newField(nr, nz int, initial float64) [][]float64 {
	field := make([][]float64, nr)
	for i := range field {
		field[i] = make([]float64, nz)
		for j := range field[i] {
			field[i][j] = initial
		}
	}
	return field
}

func copyField(field [][]float64) [][]float64 {
	res := make([][]float64, len(field))
	for i := range field {
		res[i] = make([]float64, len(field[i]))
		copy(res[i], field[i])
	}
	return res
}

// NaN 不参与比较，单独返回
func fieldRange(field [][]float64) (lo, hi float64, hasNaN bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := range field {
		for _, v := range field[i] {
			if math.IsNaN(v) {
				hasNaN = true
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if lo > hi {
		// 全是 NaN
		return math.NaN(), math.NaN(), hasNaN
	}
	return lo, hi, hasNaN
}
