package locationrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"semestock/internal/domain"
	"semestock/internal/errors"
	"semestock/internal/pkg/database"
	"semestock/internal/pkg/logger"
	"semestock/internal/repository"
)

// LocationRepository implementa a persistência das localizações (slots) das câmaras.
type LocationRepository struct {
	DB        *sql.DB
	q         database.Querier
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewLocationRepository cria e retorna uma nova instância do Repositório de Localizações.
func NewLocationRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *LocationRepository {
	return &LocationRepository{
		DB:        db,
		q:         db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// WithTx retorna uma cópia do repositório cujas queries rodam dentro da
// transação. Com tx == nil (modo degradado), as queries rodam direto no pool.
func (r *LocationRepository) WithTx(tx *sql.Tx) repository.LocationStore {
	if tx == nil {
		return r
	}
	clone := *r
	clone.q = tx
	return &clone
}

const locationColumns = `id, chamber_id, quadra, lado, fila, andar, code, occupied, max_capacity_kg, current_weight_kg, created_at, updated_at`

func scanLocation(row interface{ Scan(...any) error }) (domain.Location, error) {
	var loc domain.Location
	err := row.Scan(
		&loc.ID, &loc.ChamberID,
		&loc.Coordinate.Quadra, &loc.Coordinate.Lado, &loc.Coordinate.Fila, &loc.Coordinate.Andar,
		&loc.Code, &loc.Occupied, &loc.MaxCapacityKg, &loc.CurrentWeightKg,
		&loc.CreatedAt, &loc.UpdatedAt,
	)
	return loc, err
}

// FindByID busca uma localização pelo ID.
func (r *LocationRepository) FindByID(ctx context.Context, id string) (domain.Location, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`

	loc, err := scanLocation(r.q.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Location{}, errors.NewNotFoundError(fmt.Sprintf("Localização com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar localização no DB.", err)
		return domain.Location{}, errors.NewDBError("Falha ao buscar localização", err)
	}
	return loc, nil
}

// FindByIDForUpdate busca uma localização bloqueando a linha na transação
// (serialização por agregado).
func (r *LocationRepository) FindByIDForUpdate(ctx context.Context, id string) (domain.Location, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1 FOR UPDATE`

	loc, err := scanLocation(r.q.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Location{}, errors.NewNotFoundError(fmt.Sprintf("Localização com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar localização para atualização no DB.", err)
		return domain.Location{}, errors.NewDBError("Falha ao buscar localização para atualização", err)
	}
	return loc, nil
}

// FindPairForUpdate bloqueia duas localizações em ordem crescente de ID —
// ordem global fixa que evita deadlock entre movimentações concorrentes em
// sentidos opostos. Retorna as localizações indexadas por ID.
func (r *LocationRepository) FindPairForUpdate(ctx context.Context, idA, idB string) (map[string]domain.Location, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + locationColumns + ` FROM locations WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`

	rows, err := r.q.QueryContext(ctxTimeout, query, idA, idB)
	if err != nil {
		r.logger.Error("Falha ao bloquear par de localizações no DB.", err)
		return nil, errors.NewDBError("Falha ao bloquear localizações", err)
	}
	defer rows.Close()

	found := make(map[string]domain.Location, 2)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear localização do DB", err)
		}
		found[loc.ID] = loc
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de localizações", err)
	}

	for _, id := range []string{idA, idB} {
		if _, ok := found[id]; !ok {
			return nil, errors.NewNotFoundError(fmt.Sprintf("Localização com ID %s não encontrada.", id))
		}
	}
	return found, nil
}

// UpdateOccupancy grava o flag de ocupação e o peso corrente de uma localização.
func (r *LocationRepository) UpdateOccupancy(ctx context.Context, id string, occupied bool, weightKg float64) (domain.Location, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE locations
        SET occupied = $1, current_weight_kg = $2, updated_at = $3
        WHERE id = $4
        RETURNING ` + locationColumns

	loc, err := scanLocation(r.q.QueryRowContext(ctxTimeout, query, occupied, weightKg, time.Now().UTC(), id))
	if err == sql.ErrNoRows {
		return domain.Location{}, errors.NewNotFoundError(fmt.Sprintf("Localização com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar ocupação da localização no DB.", err)
		return domain.Location{}, errors.NewDBError("Falha ao atualizar ocupação", err)
	}
	return loc, nil
}

// BulkInsert insere as localizações geradas pelo provisionamento de uma câmara.
func (r *LocationRepository) BulkInsert(ctx context.Context, locations []domain.Location) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if len(locations) == 0 {
		return nil
	}

	// Monta um único INSERT multi-valores (o provisionamento é uma operação
	// administrativa; uma câmara típica tem centenas de slots).
	var sb strings.Builder
	sb.WriteString(`INSERT INTO locations (` + locationColumns + `) VALUES `)
	args := make([]any, 0, len(locations)*12)
	now := time.Now().UTC()
	for i, loc := range locations {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 12
		sb.WriteString("(")
		for j := 1; j <= 12; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		if loc.ID == "" {
			loc.ID = uuid.New().String()
		}
		args = append(args,
			loc.ID, loc.ChamberID,
			loc.Coordinate.Quadra, loc.Coordinate.Lado, loc.Coordinate.Fila, loc.Coordinate.Andar,
			loc.Code, loc.Occupied, loc.MaxCapacityKg, loc.CurrentWeightKg, now, now,
		)
	}

	if _, err := r.q.ExecContext(ctxTimeout, sb.String(), args...); err != nil {
		r.logger.Error("Falha ao inserir localizações em massa no DB.", err)
		return errors.NewDBError("Falha ao provisionar localizações", err)
	}
	return nil
}

// ListByChamber lista as localizações de uma câmara, ordenadas pelos eixos.
func (r *LocationRepository) ListByChamber(ctx context.Context, chamberID string) ([]domain.Location, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + locationColumns + `
        FROM locations
        WHERE chamber_id = $1
        ORDER BY quadra, lado, fila, andar`

	rows, err := r.q.QueryContext(ctxTimeout, query, chamberID)
	if err != nil {
		r.logger.Error("Falha ao listar localizações da câmara no DB.", err)
		return nil, errors.NewDBError("Falha ao listar localizações", err)
	}
	defer rows.Close()

	var locations []domain.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear localizações do DB", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de localizações", err)
	}
	return locations, nil
}

// CountByChamber conta as localizações existentes em uma câmara.
func (r *LocationRepository) CountByChamber(ctx context.Context, chamberID string) (int, error) {
	return r.countByChamber(ctx, chamberID, false)
}

// CountOccupiedByChamber conta apenas as localizações ocupadas de uma câmara
// (guarda do reprovisionamento: nunca órfanar estoque vivo).
func (r *LocationRepository) CountOccupiedByChamber(ctx context.Context, chamberID string) (int, error) {
	return r.countByChamber(ctx, chamberID, true)
}

func (r *LocationRepository) countByChamber(ctx context.Context, chamberID string, occupiedOnly bool) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT COUNT(*) FROM locations WHERE chamber_id = $1`
	if occupiedOnly {
		query += ` AND occupied = TRUE`
	}

	var count int
	if err := r.q.QueryRowContext(ctxTimeout, query, chamberID).Scan(&count); err != nil {
		r.logger.Error("Falha ao contar localizações da câmara no DB.", err)
		return 0, errors.NewDBError("Falha ao contar localizações", err)
	}
	return count, nil
}

// DeleteByChamber remove todas as localizações de uma câmara
// (apenas durante reprovisionamento com overwrite, após a guarda de ocupação).
func (r *LocationRepository) DeleteByChamber(ctx context.Context, chamberID string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if _, err := r.q.ExecContext(ctxTimeout, `DELETE FROM locations WHERE chamber_id = $1`, chamberID); err != nil {
		r.logger.Error("Falha ao remover localizações da câmara no DB.", err)
		return errors.NewDBError("Falha ao remover localizações", err)
	}
	return nil
}
