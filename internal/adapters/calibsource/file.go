package calibsource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

// File lee la tabla de un fichero JSON o YAML. Se relee en cada llamada,
// el cacheo es cosa del Calibrator.
type File struct {
	path string
}

// NewFile crea una fuente sobre path.
func NewFile(path string) *File {
	return &File{path: path}
}

// LoadCalibration implementa ports.CalibrationSource.
// Un fichero inexistente devuelve ports.ErrNoCalibration.
func (f *File) LoadCalibration(_ context.Context) (domain.CalibrationTable, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.CalibrationTable{}, ports.ErrNoCalibration
	}
	if err != nil {
		return domain.CalibrationTable{}, fmt.Errorf("calibsource.File: read %q: %w", f.path, err)
	}

	// JSON es un subconjunto de YAML: un solo decoder sirve para ambos.
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.CalibrationTable{}, fmt.Errorf("calibsource.File: parse %q: %w", f.path, err)
	}
	tbl, err := doc.table("file")
	if err != nil {
		if errors.Is(err, ports.ErrNoCalibration) {
			return domain.CalibrationTable{}, err
		}
		return domain.CalibrationTable{}, fmt.Errorf("calibsource.File: %q: %w", f.path, err)
	}
	tbl.LoadedAt = time.Now().UTC()
	return tbl, nil
}
