package calculator

import (
	"time"

	"gopkg.in/ini.v1"
)

type Config struct {
	Nr int // 径向节点数
	Nz int // 轴向节点数

	ConvectiveCoefficient float64 // 对流换热系数 W/m²·K

	StepInterval   time.Duration // 每一步之间的间隔，0 表示不等待
	PollInterval   time.Duration // 暂停时轮询间隔
	SnapshotBuffer int

	// 温度场绝对值上限，超过则认为数值发散并停止计算；0 表示不检查
	MaxFieldMagnitude float64
}

func DefaultConfig() Config {
	return Config{
		Nr:                    10,
		Nz:                    20,
		ConvectiveCoefficient: 10.0,
		StepInterval:          100 * time.Millisecond,
		PollInterval:          10 * time.Millisecond,
		SnapshotBuffer:        16,
	}
}

func LoadConfig(file *ini.File) Config {
	d := DefaultConfig()
	sec := file.Section("calculator")
	cfg := Config{
		Nr:                    sec.Key("nr").MustInt(d.Nr),
		Nz:                    sec.Key("nz").MustInt(d.Nz),
		ConvectiveCoefficient: sec.Key("convective_coefficient").MustFloat64(d.ConvectiveCoefficient),
		StepInterval:          time.Duration(sec.Key("step_interval_ms").MustInt(100)) * time.Millisecond,
		PollInterval:          time.Duration(sec.Key("poll_interval_ms").MustInt(10)) * time.Millisecond,
		SnapshotBuffer:        sec.Key("snapshot_buffer").MustInt(d.SnapshotBuffer),
		MaxFieldMagnitude:     sec.Key("max_field_magnitude").MustFloat64(0),
	}
	return cfg.normalize()
}

// 至少需要一层内部节点
func (cfg Config) normalize() Config {
	if cfg.Nr < 3 {
		cfg.Nr = 3
	}
	if cfg.Nz < 3 {
		cfg.Nz = 3
	}
	if cfg.SnapshotBuffer < 0 {
		cfg.SnapshotBuffer = 0
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Millisecond
	}
	if cfg.StepInterval < 0 {
		cfg.StepInterval = 0
	}
	return cfg
}
