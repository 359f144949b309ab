package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
	"github.com/Zayitus/PLantAdvisor-V4/internal/kb"
)

// LoadFacts reads a YAML facts file into initial facts for the engine.
//
// The file is a flat mapping of predicate to scalar or list value:
//
//	ubicacion_usuario: interior
//	calefaccion_nivel: muy_alta
//	mascotas_presentes: true
//	plantas_descartadas: [Potus, Menta]
//
// Nested mappings are rejected; a fact value is a scalar or a list.
func LoadFacts(path string) (map[string]ir.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse facts: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("facts file %s holds no facts", path)
	}

	facts := make(map[string]ir.Value, len(raw))
	for predicate, v := range raw {
		value, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("fact %q: %w", predicate, err)
		}
		if _, isNull := value.(ir.Null); isNull {
			return nil, fmt.Errorf("fact %q: a fact value cannot be null", predicate)
		}
		facts[predicate] = value
	}
	return facts, nil
}

// loadRules resolves the knowledge source for a command: an explicit CUE
// file when given, the built-in Tierra del Fuego rules otherwise.
func loadRules(rulesPath string) (*kb.Static, string, error) {
	if rulesPath == "" {
		s, err := kb.FloraTDF()
		return s, "builtin flora_tdf", err
	}
	s, err := kb.LoadFile(rulesPath)
	return s, rulesPath, err
}
