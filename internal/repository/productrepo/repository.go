package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"semestock/internal/domain"
	"semestock/internal/errors"
	"semestock/internal/pkg/cache"
	"semestock/internal/pkg/database"
	"semestock/internal/pkg/logger"
	"semestock/internal/repository"
)

// Chave de cache para produtos (estratégia Cache-Aside nas leituras).
const productCacheKey = "product:%s"

// TTL do cache de produtos.
const productCacheTTL = 5 * time.Minute

// ProductRepository implementa a persistência dos lotes de sementes.
type ProductRepository struct {
	DB        *sql.DB
	q         database.Querier
	Cache     cache.Client
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
// Aqui injetamos as dependências de Infraestrutura (DB e Cache).
func NewProductRepository(db *sql.DB, cacheClient cache.Client, dbTimeout time.Duration, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		q:         db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// WithTx retorna uma cópia do repositório cujas queries rodam dentro da transação.
func (r *ProductRepository) WithTx(tx *sql.Tx) repository.ProductStore {
	if tx == nil {
		return r
	}
	clone := *r
	clone.q = tx
	return &clone
}

const productColumns = `id, name, lot, seed_type_id, quantity, storage_unit, weight_per_unit_kg, total_weight_kg, location_id, client_id, entry_date, expiration_date, status, notes, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Lot, &p.SeedTypeID, &p.Quantity, &p.StorageUnit,
		&p.WeightPerUnitKg, &p.TotalWeightKg, &p.LocationID, &p.ClientID,
		&p.EntryDate, &p.ExpirationDate, &p.Status, &p.Notes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// Insert persiste um novo produto.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	query := `
        INSERT INTO products (` + productColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING ` + productColumns

	created, err := scanProduct(r.q.QueryRowContext(ctxTimeout, query,
		product.ID, product.Name, product.Lot, product.SeedTypeID, product.Quantity, product.StorageUnit,
		product.WeightPerUnitKg, product.TotalWeightKg, product.LocationID, product.ClientID,
		product.EntryDate, product.ExpirationDate, product.Status, product.Notes,
		product.CreatedAt, product.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("Falha ao inserir produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao criar produto", err)
	}

	return created, nil
}

// FindByID busca um produto pelo ID, utilizando a estratégia Cache-Aside.
// Leituras dentro de transação (WithTx) não passam pelo cache.
func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(productCacheKey, id)
	inTx := r.q != database.Querier(r.DB)

	// 1. Tentar obter do Cache (Redis)
	if !inTx {
		var product domain.Product
		cachedData, err := r.Cache.Get(ctxTimeout, key)
		if err == nil {
			// Cache HIT
			if json.Unmarshal([]byte(cachedData), &product) == nil {
				return product, nil
			}
			// Se a desserialização falhar, continua para o DB.
		}
		// Erros reais de cache (conexão perdida) também caem para o DB.
	}

	// 2. Busca no Banco de Dados (PostgreSQL)
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.q.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto", err)
	}

	// 3. Popular o cache para futuras requisições (best-effort).
	if !inTx {
		if productJSON, marshalErr := json.Marshal(product); marshalErr == nil {
			r.Cache.Set(ctxTimeout, key, productJSON, productCacheTTL)
		}
	}

	return product, nil
}

// FindByIDForUpdate busca um produto bloqueando a linha na transação.
// Nunca consulta o cache: o bloqueio serializa as mutações do agregado
// e também o fluxo de sequência do livro de movimentações deste produto.
func (r *ProductRepository) FindByIDForUpdate(ctx context.Context, id string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	product, err := scanProduct(r.q.QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não existe na base de dados.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto para atualização no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao buscar produto para atualização", err)
	}
	return product, nil
}

// Update persiste as mutações de um produto e invalida a entrada de cache.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	product.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE products
        SET name = $1, lot = $2, seed_type_id = $3, quantity = $4, storage_unit = $5,
            weight_per_unit_kg = $6, total_weight_kg = $7, location_id = $8, client_id = $9,
            entry_date = $10, expiration_date = $11, status = $12, notes = $13, updated_at = $14
        WHERE id = $15
        RETURNING ` + productColumns

	updated, err := scanProduct(r.q.QueryRowContext(ctxTimeout, query,
		product.Name, product.Lot, product.SeedTypeID, product.Quantity, product.StorageUnit,
		product.WeightPerUnitKg, product.TotalWeightKg, product.LocationID, product.ClientID,
		product.EntryDate, product.ExpirationDate, product.Status, product.Notes, product.UpdatedAt,
		product.ID,
	))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("Produto com ID %s não encontrado para atualização.", product.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar produto no DB.", err)
		return domain.Product{}, errors.NewDBError("Falha ao atualizar produto", err)
	}

	// Invalida o cache somente após o commit: dentro da transação a linha
	// antiga ainda é a visível, e uma leitura concorrente repovoaria o
	// cache com o dado pré-commit pelo TTL inteiro.
	database.AfterCommit(r.q, func() {
		r.Cache.Delete(context.Background(), fmt.Sprintf(productCacheKey, product.ID))
	})

	return updated, nil
}

// FindAll busca produtos com filtros e paginação.
func (r *ProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}
	argN := 1

	if filter.Name != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", argN)
		args = append(args, "%"+filter.Name+"%")
		argN++
	}
	if filter.Lot != "" {
		query += fmt.Sprintf(" AND lot = $%d", argN)
		args = append(args, filter.Lot)
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, filter.Status)
		argN++
	}
	if filter.ChamberID != "" {
		query += fmt.Sprintf(" AND location_id IN (SELECT id FROM locations WHERE chamber_id = $%d)", argN)
		args = append(args, filter.ChamberID)
		argN++
	}

	query += " ORDER BY entry_date DESC, name"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.q.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar produtos no DB.", err)
		return nil, errors.NewDBError("Falha ao buscar produtos", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear produtos do DB", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de produtos", err)
	}
	return products, nil
}
