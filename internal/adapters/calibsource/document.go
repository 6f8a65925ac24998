// Package calibsource implements ports.CalibrationSource over files, HTTP
// and a builtin curve.
package calibsource

import (
	"fmt"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

// document es el formato on-disk / on-wire de una tabla de calibración.
// Acepta el mapa legacy price_to_actual o una lista explícita de puntos.
type document struct {
	Version              string                    `json:"version" yaml:"version"`
	PriceToActual        map[string]float64        `json:"price_to_actual" yaml:"price_to_actual"`
	Points               []domain.CalibrationPoint `json:"points" yaml:"points"`
	TotalMarketsAnalyzed int                       `json:"total_markets_analyzed" yaml:"total_markets_analyzed"`
}

// table convierte el documento a tabla validada. Un documento sin puntos
// equivale a "sin calibración".
func (d document) table(source string) (domain.CalibrationTable, error) {
	var (
		tbl domain.CalibrationTable
		err error
	)
	switch {
	case len(d.Points) > 0:
		tbl, err = domain.NewCalibrationTable(d.Points)
	case len(d.PriceToActual) > 0:
		tbl, err = domain.TableFromPriceMap(d.PriceToActual)
	default:
		return domain.CalibrationTable{}, ports.ErrNoCalibration
	}
	if err != nil {
		return domain.CalibrationTable{}, fmt.Errorf("invalid table: %w", err)
	}
	tbl.Version = d.Version
	tbl.TotalMarkets = d.TotalMarketsAnalyzed
	tbl.Source = source
	return tbl, nil
}
