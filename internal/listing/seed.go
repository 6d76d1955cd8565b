package listing

import (
	"encoding/json"
	"fmt"
	"os"

	"brokerage-portal/internal/models"
)

type seedFile struct {
	Propiedades []models.Listing `json:"propiedades"`
	Proyectos   []models.Listing `json:"proyectos"`
}

// LoadSeedFile reads {"propiedades": [...], "proyectos": [...]} into a
// MemorySource.
func LoadSeedFile(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	m := NewMemorySource()
	m.Put(models.KindProperty, seed.Propiedades)
	m.Put(models.KindProject, seed.Proyectos)
	return m, nil
}
