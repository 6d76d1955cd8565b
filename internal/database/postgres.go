package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"

	"github.com/lib/pq"
)

type DB struct {
	conn *sql.DB
}

func NewDB(host, port, user, password, dbname, sslmode string) (*DB, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// NewDBFromConn wraps an open connection pool
func NewDBFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

func (db *DB) Close() error {
	return db.conn.Close()
}

const listingTableDDL = `
	CREATE TABLE IF NOT EXISTS %[1]s (
		id VARCHAR(64) PRIMARY KEY,
		titulo TEXT NOT NULL,
		descripcion TEXT,
		direccion TEXT,

		region VARCHAR(100),
		comuna VARCHAR(100),
		barrio VARCHAR(150),
		operacion VARCHAR(20),
		tipo VARCHAR(80),

		precio_uf NUMERIC(14, 2),
		precio_clp NUMERIC(16, 0),
		dormitorios INTEGER,
		banos INTEGER,
		estacionamientos INTEGER,
		m2_construidos NUMERIC(10, 2),
		m2_terreno NUMERIC(12, 2),

		imagen_portada TEXT,
		destacado BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_operacion ON %[1]s(LOWER(TRIM(operacion)));
	CREATE INDEX IF NOT EXISTS idx_%[1]s_precio_uf ON %[1]s(precio_uf);
	`

const leadsTableDDL = `
	CREATE TABLE IF NOT EXISTS leads (
		id VARCHAR(36) PRIMARY KEY,
		kind VARCHAR(20) NOT NULL,
		nombre VARCHAR(100) NOT NULL,
		email VARCHAR(200),
		telefono VARCHAR(30),
		mensaje TEXT,
		listing_id VARCHAR(64),
		referido_nombre VARCHAR(100),
		referido_email VARCHAR(200),
		referido_telefono VARCHAR(30),
		operacion VARCHAR(20),
		tipo VARCHAR(80),
		comuna VARCHAR(100),
		presupuesto VARCHAR(60),
		origen VARCHAR(200),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_leads_kind ON leads(kind);
	`

// InitSchema creates the listing and lead tables if they don't exist
func (db *DB) InitSchema() error {
	for _, kind := range []models.ListingKind{models.KindProperty, models.KindProject} {
		if _, err := db.conn.Exec(fmt.Sprintf(listingTableDDL, kind.Table())); err != nil {
			return fmt.Errorf("create %s: %w", kind.Table(), err)
		}
	}
	_, err := db.conn.Exec(leadsTableDDL)
	return err
}

const listingColumns = `
	id, titulo, COALESCE(descripcion, ''), COALESCE(direccion, ''),
	COALESCE(region, ''), COALESCE(comuna, ''), COALESCE(barrio, ''),
	COALESCE(operacion, ''), COALESCE(tipo, ''),
	precio_uf, precio_clp, dormitorios, banos, estacionamientos, m2_construidos, m2_terreno,
	COALESCE(imagen_portada, ''), destacado, created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }, l *models.Listing) error {
	return row.Scan(
		&l.ID, &l.Titulo, &l.Descripcion, &l.Direccion,
		&l.Region, &l.Comuna, &l.Barrio,
		&l.Operacion, &l.Tipo,
		&l.PrecioUF, &l.PrecioCLP, &l.Dormitorios, &l.Banos, &l.Estacionamientos, &l.M2Construidos, &l.M2Terreno,
		&l.ImagenPortada, &l.Destacado, &l.CreatedAt, &l.UpdatedAt,
	)
}

// Query implements listing.Source.
func (db *DB) Query(ctx context.Context, q listing.Query) ([]models.Listing, error) {
	w := listingWhere(dialectPostgres, q)

	query := "SELECT " + listingColumns + " FROM " + pq.QuoteIdentifier(q.Kind.Table())
	if cond := w.SQL(); cond != "" {
		query += " WHERE " + cond
	}
	query += " ORDER BY created_at DESC"
	if q.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := scanListing(rows, &l); err != nil {
			return nil, err
		}
		l.Kind = q.Kind
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// Get implements listing.Source.
func (db *DB) Get(ctx context.Context, kind models.ListingKind, id string) (*models.Listing, error) {
	query := "SELECT " + listingColumns + " FROM " + pq.QuoteIdentifier(kind.Table()) + " WHERE id = $1"

	var l models.Listing
	err := scanListing(db.conn.QueryRowContext(ctx, query, id), &l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, listing.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l.Kind = kind
	return &l, nil
}

// SaveListings upserts listings by id in one transaction.
func (db *DB) SaveListings(ctx context.Context, kind models.ListingKind, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	query := `
	INSERT INTO ` + pq.QuoteIdentifier(kind.Table()) + ` (
		id, titulo, descripcion, direccion, region, comuna, barrio, operacion, tipo,
		precio_uf, precio_clp, dormitorios, banos, estacionamientos, m2_construidos, m2_terreno,
		imagen_portada, destacado, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	ON CONFLICT (id) DO UPDATE SET
		titulo = EXCLUDED.titulo,
		descripcion = EXCLUDED.descripcion,
		direccion = EXCLUDED.direccion,
		region = EXCLUDED.region,
		comuna = EXCLUDED.comuna,
		barrio = EXCLUDED.barrio,
		operacion = EXCLUDED.operacion,
		tipo = EXCLUDED.tipo,
		precio_uf = EXCLUDED.precio_uf,
		precio_clp = EXCLUDED.precio_clp,
		dormitorios = EXCLUDED.dormitorios,
		banos = EXCLUDED.banos,
		estacionamientos = EXCLUDED.estacionamientos,
		m2_construidos = EXCLUDED.m2_construidos,
		m2_terreno = EXCLUDED.m2_terreno,
		imagen_portada = EXCLUDED.imagen_portada,
		destacado = EXCLUDED.destacado,
		updated_at = EXCLUDED.updated_at
	`

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, l := range listings {
		created := l.CreatedAt
		if created.IsZero() {
			created = now
		}
		_, err := stmt.ExecContext(ctx,
			l.ID, l.Titulo, l.Descripcion, l.Direccion, l.Region, l.Comuna, l.Barrio, l.Operacion, l.Tipo,
			l.PrecioUF, l.PrecioCLP, l.Dormitorios, l.Banos, l.Estacionamientos, l.M2Construidos, l.M2Terreno,
			l.ImagenPortada, l.Destacado, created, now)
		if err != nil {
			return fmt.Errorf("save %s %s: %w", kind, l.ID, err)
		}
	}
	return tx.Commit()
}

// InsertLead stores a contact or referral submission.
func (db *DB) InsertLead(ctx context.Context, lead *models.Lead) error {
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO leads (
		id, kind, nombre, email, telefono, mensaje, listing_id,
		referido_nombre, referido_email, referido_telefono,
		operacion, tipo, comuna, presupuesto, origen, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		lead.ID, lead.Kind, lead.Nombre, lead.Email, lead.Telefono, lead.Mensaje, lead.ListingID,
		lead.ReferidoNombre, lead.ReferidoEmail, lead.ReferidoTelefono,
		lead.Operacion, lead.Tipo, lead.Comuna, lead.Presupuesto, lead.Origen, lead.CreatedAt)
	return err
}

// CountLeads returns how many leads of each kind are stored.
func (db *DB) CountLeads(ctx context.Context) (map[models.LeadKind]int64, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT kind, COUNT(*) FROM leads GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.LeadKind]int64)
	for rows.Next() {
		var kind models.LeadKind
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
