package calculator

import (
	"math"

	"batsim/model"
)

// 构建当前温度场的快照：四个测点 + 完整温度场 + 最值。
// 读取 c.Field 没有加锁，只能在计算循环中调用
func (c *ThermalCalculator) buildData() *model.Snapshot {
	p := c.parameter
	lo, hi, _ := fieldRange(c.Field)
	return &model.Snapshot{
		Time:        c.currentTime,
		Current:     c.current,
		CenterTemp:  c.Field[0][p.Nz/2],
		SurfaceTemp: c.Field[p.Nr-1][p.Nz/2],
		TopTemp:     c.Field[p.Nr/2][p.Nz-1],
		BottomTemp:  c.Field[p.Nr/2][0],
		TempField:   copyField(c.Field),
		MinTemp:     lo,
		MaxTemp:     hi,
	}
}

// 温度场是否已经发散。出现 NaN/Inf 时总是视为发散，快照无法编码；
// MaxFieldMagnitude > 0 时再检查幅值
func (c *ThermalCalculator) isDiverged(s *model.Snapshot) bool {
	_, _, hasNaN := fieldRange(c.Field)
	if hasNaN || math.IsInf(s.MinTemp, 0) || math.IsInf(s.MaxTemp, 0) {
		return true
	}
	if c.cfg.MaxFieldMagnitude <= 0 {
		return false
	}
	return math.Abs(s.MinTemp) > c.cfg.MaxFieldMagnitude || math.Abs(s.MaxTemp) > c.cfg.MaxFieldMagnitude
}
