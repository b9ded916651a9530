package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateVolume(t *testing.T) {
	c := BatteryCellSpec{FormFactor: FormCylindrical, Length: 65, Diameter: 18}
	assert.InDelta(t, math.Pi*81*65/1000, c.UpdateVolume(), 1e-9)

	p := BatteryCellSpec{FormFactor: FormPouch, Length: 60, Width: 30, Height: 10}
	assert.InDelta(t, 18.0, p.UpdateVolume(), 1e-9)
	assert.InDelta(t, 18.0, p.Volume, 1e-9)
}

func TestCurrentProfileJSON(t *testing.T) {
	var p CurrentProfile
	require.NoError(t, json.Unmarshal([]byte(`{"0": 1.0, "10.5": 3, "2": -1}`), &p))
	assert.Equal(t, []float64{0, 2, 10.5}, p.Times())
	assert.Equal(t, 3.0, p[10.5])

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0": 1, "2": -1, "10.5": 3}`, string(b))

	err = json.Unmarshal([]byte(`{"abc": 1}`), &p)
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestDischargeParametersValidate(t *testing.T) {
	ok := DischargeRunParameters{LoadResistance: 1, InitialSOC: 100, Temperature: 25, SimulationDuration: 60}
	assert.NoError(t, ok.Validate())

	cases := []DischargeRunParameters{
		{LoadResistance: 0, InitialSOC: 50, SimulationDuration: 60},
		{LoadResistance: -1, InitialSOC: 50, SimulationDuration: 60},
		{LoadResistance: 1, InitialSOC: 101, SimulationDuration: 60},
		{LoadResistance: 1, InitialSOC: -0.1, SimulationDuration: 60},
		{LoadResistance: 1, InitialSOC: 50, SimulationDuration: 0},
		{LoadResistance: 1, InitialSOC: 50, SimulationDuration: 1441},
	}
	for _, c := range cases {
		err := c.Validate()
		assert.True(t, errors.Is(err, ErrInvalidParameter), "%+v", c)
	}
}

func TestThermalParametersValidate(t *testing.T) {
	p := DefaultThermalSimParameters()
	assert.NoError(t, p.Validate())

	p.CurrentProfile = CurrentProfile{}
	assert.True(t, errors.Is(p.Validate(), ErrInvalidParameter))

	p = DefaultThermalSimParameters()
	p.TimeStep = 0
	assert.True(t, errors.Is(p.Validate(), ErrInvalidParameter))
}

func TestCellValidate(t *testing.T) {
	c := BatteryCellSpec{
		CellType: CellLiIonPhosphate, FormFactor: FormCylindrical,
		Length: 65, Diameter: 18, NominalVoltage: 3.2, Capacity: 2500,
		InternalResistance: 25, HeatResistance: 10,
	}
	assert.NoError(t, c.Validate())

	c.FormFactor = FormPrismatic
	assert.True(t, errors.Is(c.Validate(), ErrInvalidParameter))

	c.CellType = "lithium"
	assert.True(t, errors.Is(c.Validate(), ErrInvalidParameter))
}
