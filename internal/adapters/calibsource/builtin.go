package calibsource

import (
	"context"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

// builtinCurve es la curva genérica de mercados de predicción: los
// extremos están sobrevalorados y el centro bien calibrado.
var builtinCurve = map[string]float64{
	"0.05": 0.00, "0.10": 0.05, "0.15": 0.10, "0.20": 0.15,
	"0.25": 0.20, "0.30": 0.28, "0.35": 0.33, "0.40": 0.38,
	"0.45": 0.44, "0.50": 0.50, "0.55": 0.56, "0.60": 0.62,
	"0.65": 0.67, "0.70": 0.72, "0.75": 0.78, "0.80": 0.82,
	"0.85": 0.88, "0.90": 0.93, "0.95": 1.00,
}

// Builtin sirve la curva embebida. Solo se usa si se pide explícitamente.
type Builtin struct{}

// LoadCalibration implementa ports.CalibrationSource.
func (Builtin) LoadCalibration(_ context.Context) (domain.CalibrationTable, error) {
	doc := document{Version: "builtin", PriceToActual: builtinCurve}
	return doc.table("builtin")
}

// None nunca tiene tabla: el Calibrator queda en identidad.
type None struct{}

// LoadCalibration implementa ports.CalibrationSource.
func (None) LoadCalibration(_ context.Context) (domain.CalibrationTable, error) {
	return domain.CalibrationTable{}, ports.ErrNoCalibration
}
