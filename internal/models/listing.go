package models

import (
	"encoding/json"
	"time"
)

// ListingKind distinguishes single properties from development projects.
// Both share the same record shape.
type ListingKind string

const (
	KindProperty ListingKind = "propiedad"
	KindProject  ListingKind = "proyecto"
)

// Table returns the table (or REST resource) holding listings of this kind.
func (k ListingKind) Table() string {
	if k == KindProject {
		return "proyectos"
	}
	return "propiedades"
}

// Valid reports whether k is a known kind
func (k ListingKind) Valid() bool {
	return k == KindProperty || k == KindProject
}

// Operation values as stored by the data source
const (
	OperationSale  = "venta"
	OperationLease = "arriendo"
)

type Listing struct {
	// Identity and display text
	ID          string      `gorm:"type:varchar(64);primaryKey" json:"id"`
	Kind        ListingKind `gorm:"-" json:"kind,omitempty"`
	Titulo      string      `gorm:"type:text;not null" json:"titulo"`
	Descripcion string      `gorm:"type:text" json:"descripcion,omitempty"`
	Direccion   string      `gorm:"type:text" json:"direccion,omitempty"`

	// Location. Comuna and barrio are free text from the data source.
	Region string `gorm:"type:varchar(100)" json:"region,omitempty"`
	Comuna string `gorm:"type:varchar(100);index" json:"comuna,omitempty"`
	Barrio string `gorm:"type:varchar(150)" json:"barrio,omitempty"`

	Operacion string `gorm:"type:varchar(20);index" json:"operacion,omitempty"`
	Tipo      string `gorm:"type:varchar(80);index" json:"tipo,omitempty"`

	// Both nil means price on request
	PrecioUF  *float64 `gorm:"column:precio_uf;type:decimal(14,2);index" json:"precio_uf"`
	PrecioCLP *float64 `gorm:"column:precio_clp;type:decimal(16,0)" json:"precio_clp"`

	Dormitorios      *int     `gorm:"type:int" json:"dormitorios"`
	Banos            *int     `gorm:"type:int" json:"banos"`
	Estacionamientos *int     `gorm:"type:int" json:"estacionamientos"`
	M2Construidos    *float64 `gorm:"column:m2_construidos;type:decimal(10,2)" json:"m2_construidos"`
	M2Terreno        *float64 `gorm:"column:m2_terreno;type:decimal(12,2)" json:"m2_terreno"`

	ImagenPortada string `gorm:"column:imagen_portada;type:text" json:"imagen_portada,omitempty"`
	Destacado     bool   `gorm:"not null;default:false" json:"destacado"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_created_at,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// UnmarshalJSON accepts the cover image under any of the alias fields the
// data source has used over time.
func (l *Listing) UnmarshalJSON(data []byte) error {
	type plain Listing
	aux := struct {
		*plain
		Portada  string          `json:"portada"`
		CoverURL string          `json:"cover_url"`
		ImageURL string          `json:"image_url"`
		Imagen   string          `json:"imagen"`
		Imagenes json.RawMessage `json:"imagenes"`
	}{plain: (*plain)(l)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if l.ImagenPortada == "" {
		l.ImagenPortada = firstNonEmpty(aux.Portada, aux.CoverURL, aux.ImageURL, aux.Imagen, firstImage(aux.Imagenes))
	}
	return nil
}

// firstImage reads the first entry of an "imagenes" array, which is either a
// list of URLs or a list of {"url": ...} objects.
func firstImage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err == nil {
		return firstNonEmpty(urls...)
	}

	var objects []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &objects); err == nil {
		for _, o := range objects {
			if o.URL != "" {
				return o.URL
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// PriceOnRequest reports whether the listing carries no price at all
func (l *Listing) PriceOnRequest() bool {
	return l.PrecioUF == nil && l.PrecioCLP == nil
}
