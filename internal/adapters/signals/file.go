// Package signals reads strategy signals from disk.
package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// File implementa ports.SignalSource sobre un fichero JSON o YAML.
// Se relee en cada ciclo, así otro proceso puede reescribirlo entre ciclos.
type File struct {
	path string
}

// NewFile crea una fuente sobre path. "-" lee de stdin.
func NewFile(path string) *File {
	return &File{path: path}
}

// envelope permite {"signals": [...]} además de una lista plana.
type envelope struct {
	Signals []domain.Signal `json:"signals" yaml:"signals"`
}

// FetchSignals implementa ports.SignalSource.
func (f *File) FetchSignals(_ context.Context) ([]domain.Signal, error) {
	data, err := f.read()
	if err != nil {
		return nil, fmt.Errorf("signals.FetchSignals: read %q: %w", f.path, err)
	}

	sigs, err := decode(data, isYAML(f.path))
	if err != nil {
		return nil, fmt.Errorf("signals.FetchSignals: decode %q: %w", f.path, err)
	}

	for i := range sigs {
		// Side inválido se deja tal cual: lo rechaza el motor con invalid_side.
		if side, err := domain.ParseSide(string(sigs[i].Side)); err == nil {
			sigs[i].Side = side
		}
	}
	slog.Debug("signals loaded", "path", f.path, "count", len(sigs))
	return sigs, nil
}

func (f *File) read() ([]byte, error) {
	if f.path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(f.path)
}

func decode(data []byte, asYAML bool) ([]domain.Signal, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	if asYAML {
		var list []domain.Signal
		if err := yaml.Unmarshal(data, &list); err == nil {
			return list, nil
		}
		var env envelope
		if err := yaml.Unmarshal(data, &env); err != nil {
			return nil, err
		}
		return env.Signals, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []domain.Signal
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env.Signals, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
