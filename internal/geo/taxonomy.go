package geo

// Region is an administrative region the brokerage publishes listings in.
type Region struct {
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Comunas []Comuna `json:"comunas"`
}

// Comuna is a municipality with the neighborhoods shown in the barrio select.
type Comuna struct {
	Name    string   `json:"name"`
	Barrios []string `json:"barrios,omitempty"`
}

// Region names
const (
	RegionMetropolitana = "Metropolitana"
	RegionValparaiso    = "Valparaíso"
	RegionOHiggins      = "O'Higgins"
	RegionCoquimbo      = "Coquimbo"
)

// Tunquén is a seaside barrio inside Casablanca. Listings report it as a
// comuna of its own about as often as they report Casablanca.
const (
	tunquenBarrio = "Tunquén"
	tunquenComuna = "Casablanca"
)

var regions = []Region{
	{
		Slug: "metropolitana",
		Name: RegionMetropolitana,
		Comunas: []Comuna{
			{Name: "Santiago", Barrios: []string{"Lastarria", "Barrio Brasil", "Barrio Yungay", "Parque Forestal"}},
			{Name: "Providencia", Barrios: []string{"Pedro de Valdivia Norte", "Barrio Italia", "Los Leones", "Manuel Montt"}},
			{Name: "Las Condes", Barrios: []string{"El Golf", "San Damián", "Los Dominicos", "Estoril", "Apoquindo"}},
			{Name: "Vitacura", Barrios: []string{"Santa María de Manquehue", "Lo Curro", "Jardín del Este"}},
			{Name: "Lo Barnechea", Barrios: []string{"La Dehesa", "Los Trapenses", "El Arrayán", "Valle Escondido"}},
			{Name: "Ñuñoa", Barrios: []string{"Plaza Ñuñoa", "Villa Frei", "Suárez Mujica"}},
			{Name: "La Reina", Barrios: []string{"Príncipe de Gales", "Larraín"}},
			{Name: "Peñalolén"},
			{Name: "Macul"},
			{Name: "La Florida"},
			{Name: "Puente Alto"},
			{Name: "San Miguel"},
			{Name: "Huechuraba", Barrios: []string{"Ciudad Empresarial", "Pedro Fontova"}},
			{Name: "Colina", Barrios: []string{"Chicureo", "Piedra Roja", "Ayres de Chicureo"}},
			{Name: "Lampa"},
			{Name: "Maipú"},
			{Name: "Estación Central"},
			{Name: "Pirque"},
			{Name: "Calera de Tango"},
			{Name: "Buin"},
			{Name: "Talagante"},
			{Name: "Peñaflor"},
			{Name: "Padre Hurtado"},
		},
	},
	{
		Slug: "valparaiso",
		Name: RegionValparaiso,
		Comunas: []Comuna{
			{Name: "Valparaíso", Barrios: []string{"Cerro Alegre", "Cerro Concepción", "Playa Ancha"}},
			{Name: "Viña del Mar", Barrios: []string{"Reñaca", "Jardín del Mar", "Recreo", "Miraflores", "Agua Santa"}},
			{Name: "Concón", Barrios: []string{"Montemar", "Costa de Montemar", "Bosques de Montemar"}},
			{Name: "Quilpué"},
			{Name: "Villa Alemana"},
			{Name: tunquenComuna, Barrios: []string{tunquenBarrio, "El Rosario de Tunquén", "Lo Vásquez"}},
			{Name: "Algarrobo", Barrios: []string{"San Alfonso del Mar", "Mirasol"}},
			{Name: "El Quisco", Barrios: []string{"Isla Negra"}},
			{Name: "El Tabo", Barrios: []string{"Las Cruces"}},
			{Name: "Cartagena"},
			{Name: "San Antonio"},
			{Name: "Santo Domingo", Barrios: []string{"Rocas de Santo Domingo"}},
			{Name: "Zapallar", Barrios: []string{"Cachagua"}},
			{Name: "Papudo"},
			{Name: "Puchuncaví", Barrios: []string{"Maitencillo", "Horcón"}},
			{Name: "Quintero"},
			{Name: "Los Andes"},
		},
	},
	{
		Slug: "ohiggins",
		Name: RegionOHiggins,
		Comunas: []Comuna{
			{Name: "Rancagua"},
			{Name: "Machalí"},
			{Name: "Pichilemu", Barrios: []string{"Punta de Lobos"}},
			{Name: "Navidad", Barrios: []string{"Matanzas", "La Boca"}},
			{Name: "Litueche"},
			{Name: "Santa Cruz"},
		},
	},
	{
		Slug: "coquimbo",
		Name: RegionCoquimbo,
		Comunas: []Comuna{
			{Name: "La Serena", Barrios: []string{"Avenida del Mar", "San Joaquín"}},
			{Name: "Coquimbo", Barrios: []string{"Peñuelas", "La Herradura"}},
			{Name: "Ovalle"},
			{Name: "Vicuña"},
		},
	},
}
