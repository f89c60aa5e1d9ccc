package chamberrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"semestock/internal/domain"
	"semestock/internal/errors"
	"semestock/internal/pkg/database"
	"semestock/internal/pkg/logger"
	"semestock/internal/repository"
)

// ChamberRepository implementa a persistência das câmaras frias.
type ChamberRepository struct {
	DB        *sql.DB
	q         database.Querier
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewChamberRepository cria e retorna uma nova instância do Repositório de Câmaras.
func NewChamberRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *ChamberRepository {
	return &ChamberRepository{
		DB:        db,
		q:         db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// WithTx retorna uma cópia do repositório cujas queries rodam dentro da transação.
func (r *ChamberRepository) WithTx(tx *sql.Tx) repository.ChamberStore {
	if tx == nil {
		return r
	}
	clone := *r
	clone.q = tx
	return &clone
}

const chamberColumns = `id, name, quadras, lados, filas, andares, status, target_temperature, target_humidity, created_at, updated_at`

func scanChamber(row interface{ Scan(...any) error }) (domain.Chamber, error) {
	var c domain.Chamber
	err := row.Scan(
		&c.ID, &c.Name,
		&c.Dimensions.Quadras, &c.Dimensions.Lados, &c.Dimensions.Filas, &c.Dimensions.Andares,
		&c.Status, &c.TargetTemperature, &c.TargetHumidity,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// Insert persiste uma nova câmara.
func (r *ChamberRepository) Insert(ctx context.Context, chamber domain.Chamber) (domain.Chamber, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if chamber.ID == "" {
		chamber.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	chamber.CreatedAt = now
	chamber.UpdatedAt = now

	query := `
        INSERT INTO chambers (` + chamberColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING ` + chamberColumns

	created, err := scanChamber(r.q.QueryRowContext(ctxTimeout, query,
		chamber.ID, chamber.Name,
		chamber.Dimensions.Quadras, chamber.Dimensions.Lados, chamber.Dimensions.Filas, chamber.Dimensions.Andares,
		chamber.Status, chamber.TargetTemperature, chamber.TargetHumidity,
		chamber.CreatedAt, chamber.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("Falha ao inserir câmara no DB.", err)
		return domain.Chamber{}, errors.NewDBError("Falha ao criar câmara", err)
	}

	return created, nil
}

// FindByID busca uma câmara pelo ID.
func (r *ChamberRepository) FindByID(ctx context.Context, id string) (domain.Chamber, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + chamberColumns + ` FROM chambers WHERE id = $1`

	chamber, err := scanChamber(r.q.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Chamber{}, errors.NewNotFoundError(fmt.Sprintf("Câmara com ID %s não encontrada.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar câmara no DB.", err)
		return domain.Chamber{}, errors.NewDBError("Falha ao buscar câmara", err)
	}
	return chamber, nil
}

// FindAll busca todas as câmaras.
func (r *ChamberRepository) FindAll(ctx context.Context) ([]domain.Chamber, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + chamberColumns + ` FROM chambers ORDER BY name`

	rows, err := r.q.QueryContext(ctxTimeout, query)
	if err != nil {
		r.logger.Error("Falha ao listar câmaras no DB.", err)
		return nil, errors.NewDBError("Falha ao buscar câmaras", err)
	}
	defer rows.Close()

	var chambers []domain.Chamber
	for rows.Next() {
		chamber, err := scanChamber(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear câmaras do DB", err)
		}
		chambers = append(chambers, chamber)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de câmaras", err)
	}
	return chambers, nil
}

// Update atualiza nome, status e alvos ambientais de uma câmara.
// As dimensões só mudam via reprovisionamento das localizações.
func (r *ChamberRepository) Update(ctx context.Context, chamber domain.Chamber) (domain.Chamber, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	chamber.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE chambers
        SET name = $1, status = $2, target_temperature = $3, target_humidity = $4,
            quadras = $5, lados = $6, filas = $7, andares = $8, updated_at = $9
        WHERE id = $10
        RETURNING ` + chamberColumns

	updated, err := scanChamber(r.q.QueryRowContext(ctxTimeout, query,
		chamber.Name, chamber.Status, chamber.TargetTemperature, chamber.TargetHumidity,
		chamber.Dimensions.Quadras, chamber.Dimensions.Lados, chamber.Dimensions.Filas, chamber.Dimensions.Andares,
		chamber.UpdatedAt, chamber.ID,
	))
	if err == sql.ErrNoRows {
		return domain.Chamber{}, errors.NewNotFoundError(fmt.Sprintf("Câmara com ID %s não encontrada para atualização.", chamber.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar câmara no DB.", err)
		return domain.Chamber{}, errors.NewDBError("Falha ao atualizar câmara", err)
	}
	return updated, nil
}
