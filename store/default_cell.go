package store

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"batsim/model"
)

// 数据库中没有对应电芯时使用的默认规格
func DefaultCell(cellType, formFactor string) *model.BatteryCellSpec {
	if cellType == model.CellLiIonPhosphate && formFactor == model.FormCylindrical {
		return &model.BatteryCellSpec{
			CellType:            cellType,
			FormFactor:          formFactor,
			Length:              65.0,
			Diameter:            18.0,
			NominalVoltage:      3.2,
			Capacity:            2500,
			EnergyDensity:       120,
			InternalResistance:  25,
			HeatResistance:      10,
			MaxDischargeCurrent: 10,
			MaxChargeCurrent:    5,
			CycleLife:           2000,
		}
	}
	// 其他电芯的通用值
	return &model.BatteryCellSpec{
		CellType:            cellType,
		FormFactor:          formFactor,
		Length:              60.0,
		Diameter:            18.0,
		Height:              10.0,
		Width:               30.0,
		NominalVoltage:      3.7,
		Capacity:            2000,
		EnergyDensity:       100,
		InternalResistance:  30,
		HeatResistance:      12,
		MaxDischargeCurrent: 8,
		MaxChargeCurrent:    4,
		CycleLife:           1500,
	}
}

func GetOrCreateCell(ctx context.Context, cs CellStore, cellType, formFactor string) (*model.BatteryCellSpec, error) {
	cell, err := cs.GetCell(ctx, cellType, formFactor)
	if err == nil {
		return cell, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	cell = DefaultCell(cellType, formFactor)
	if err := cs.PutCell(ctx, cell); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"cell_type":   cellType,
		"form_factor": formFactor,
		"volume":      cell.Volume,
	}).Info("创建默认电芯")
	return cell, nil
}
