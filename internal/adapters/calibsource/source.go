package calibsource

import (
	"fmt"

	"github.com/alejandrodnm/predictor/internal/ports"
)

// Kinds de fuente soportados en configuración.
const (
	KindFile    = "file"
	KindHTTP    = "http"
	KindSQLite  = "sqlite"
	KindBuiltin = "builtin"
	KindNone    = "none"
)

// New construye la fuente para kind. KindSQLite usa store, que debe ser
// el almacenamiento ya abierto.
func New(kind, location string, store ports.CalibrationSource) (ports.CalibrationSource, error) {
	switch kind {
	case KindFile:
		if location == "" {
			return nil, fmt.Errorf("calibsource.New: file source needs a location")
		}
		return NewFile(location), nil
	case KindHTTP:
		if location == "" {
			return nil, fmt.Errorf("calibsource.New: http source needs a location")
		}
		return NewHTTP(location), nil
	case KindSQLite:
		if store == nil {
			return nil, fmt.Errorf("calibsource.New: sqlite source needs an open store")
		}
		return store, nil
	case KindBuiltin:
		return Builtin{}, nil
	case KindNone, "":
		return None{}, nil
	}
	return nil, fmt.Errorf("calibsource.New: unknown source %q", kind)
}
