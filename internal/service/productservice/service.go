package productservice

import (
	"context"
	"database/sql"
	"time"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
	"semestock/internal/pkg/database"
	"semestock/internal/pkg/logger"
	"semestock/internal/repository"
)

// LocationAllocator é o contrato que a máquina de estados espera do
// componente de alocação de capacidade (internal/service/locationservice).
type LocationAllocator interface {
	Reserve(ctx context.Context, tx *sql.Tx, locationID string, weightKg float64) (domain.Location, error)
	AdjustWeight(ctx context.Context, tx *sql.Tx, locationID string, deltaKg float64) (domain.Location, error)
	Release(ctx context.Context, tx *sql.Tx, locationID string) (domain.Location, error)
	Transfer(ctx context.Context, tx *sql.Tx, fromLocationID, toLocationID string, weightKg float64) (domain.Location, domain.Location, error)
}

// MovementLedger é o contrato do livro de movimentações
// (internal/service/movementservice). O append é sempre o último passo
// das operações compostas deste serviço.
type MovementLedger interface {
	Append(ctx context.Context, tx *sql.Tx, m domain.Movement) (domain.Movement, error)
}

// Service é a máquina de estados do produto: dona do status do lote e
// orquestradora das operações de alocação, movimentação, divisão e remoção,
// chamando o Alocador e o Livro dentro de uma única unidade atômica.
type Service struct {
	products    repository.ProductStore
	allocator   LocationAllocator
	ledger      MovementLedger
	txManager   database.TxManager
	transitions domain.TransitionTable
	logger      logger.Logger
}

// NewService cria a máquina de estados do produto. A tabela de transições é
// dado estático do processo: carregada uma vez na inicialização e injetada
// aqui, nunca consultada como global.
func NewService(products repository.ProductStore, allocator LocationAllocator, ledger MovementLedger, txManager database.TxManager, transitions domain.TransitionTable, logger logger.Logger) *Service {
	return &Service{
		products:    products,
		allocator:   allocator,
		ledger:      ledger,
		txManager:   txManager,
		transitions: transitions,
		logger:      logger,
	}
}

// transition valida a mudança de status contra a tabela antes de aplicá-la.
func (s *Service) transition(p *domain.Product, to domain.ProductStatus) error {
	if !s.transitions.Allowed(p.Status, to) {
		return apperror.NewInvalidTransitionError(p.ID, string(p.Status), string(to))
	}
	p.Status = to
	return nil
}

// CreateProductInput agrega os dados de cadastro de um lote. LocationID é
// opcional: quando presente, a alocação acontece na própria criação.
type CreateProductInput struct {
	Name            string
	Lot             string
	SeedTypeID      string
	Quantity        int
	StorageUnit     domain.StorageUnit
	WeightPerUnitKg float64
	LocationID      *string
	ClientID        *string
	EntryDate       time.Time
	ExpirationDate  *time.Time
	Notes           string
	UserID          string
}

func (in CreateProductInput) validate() error {
	if in.Name == "" || in.Lot == "" {
		return apperror.NewValidationError("Nome e lote são obrigatórios para o produto.")
	}
	if in.Quantity <= 0 {
		return apperror.NewValidationError("A quantidade do produto deve ser positiva.")
	}
	if in.WeightPerUnitKg <= 0 {
		return apperror.NewValidationError("O peso por unidade deve ser positivo.")
	}
	if in.StorageUnit != domain.UnitSaco && in.StorageUnit != domain.UnitBag {
		return apperror.NewValidationError("A unidade de armazenamento deve ser SACO ou BAG.")
	}
	if in.UserID == "" {
		return apperror.NewValidationError("O usuário responsável é obrigatório.")
	}
	return nil
}

// Create cadastra um lote de sementes. Com localização informada, reserva a
// capacidade, nasce LOCADO e registra a ENTRADA no livro — tudo atômico;
// sem localização, nasce AGUARDANDO_LOCACAO e a ENTRADA só é registrada na
// alocação futura. O peso total é sempre derivado (quantidade × peso/unidade).
func (s *Service) Create(ctx context.Context, input CreateProductInput) (domain.Product, error) {
	if err := input.validate(); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		Name:            input.Name,
		Lot:             input.Lot,
		SeedTypeID:      input.SeedTypeID,
		Quantity:        input.Quantity,
		StorageUnit:     input.StorageUnit,
		WeightPerUnitKg: input.WeightPerUnitKg,
		ClientID:        input.ClientID,
		EntryDate:       input.EntryDate,
		ExpirationDate:  input.ExpirationDate,
		Status:          domain.StatusCadastrado,
		Notes:           input.Notes,
	}
	if product.EntryDate.IsZero() {
		product.EntryDate = time.Now().UTC()
	}
	product.RecomputeTotalWeight()

	if input.LocationID == nil {
		if err := s.transition(&product, domain.StatusAguardandoLocacao); err != nil {
			return domain.Product{}, err
		}
		created, err := s.products.Insert(ctx, product)
		if err != nil {
			return domain.Product{}, err
		}
		s.logger.Info("Produto cadastrado aguardando locação.", map[string]interface{}{
			"product_id":      created.ID,
			"lot":             created.Lot,
			"total_weight_kg": created.TotalWeightKg,
		})
		return created, nil
	}

	locationID := *input.LocationID
	var created domain.Product
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		if _, err := s.allocator.Reserve(ctx, tx, locationID, product.TotalWeightKg); err != nil {
			return err
		}
		if err := s.transition(&product, domain.StatusLocado); err != nil {
			return err
		}
		product.LocationID = &locationID

		var err error
		created, err = s.products.WithTx(tx).Insert(ctx, product)
		if err != nil {
			return err
		}

		_, err = s.ledger.Append(ctx, tx, domain.Movement{
			ProductID:    created.ID,
			Type:         domain.MovementEntrada,
			ToLocationID: &locationID,
			Quantity:     created.Quantity,
			WeightKg:     created.TotalWeightKg,
			UserID:       input.UserID,
			Reason:       "Entrada de produto no estoque",
		})
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("Produto cadastrado e locado.", map[string]interface{}{
		"product_id":  created.ID,
		"lot":         created.Lot,
		"location_id": locationID,
	})
	return created, nil
}

// Allocate vincula um produto CADASTRADO/AGUARDANDO_LOCACAO a uma
// localização: reserva a capacidade, transiciona para LOCADO e registra a
// ENTRADA — uma unidade atômica.
func (s *Service) Allocate(ctx context.Context, productID, locationID, userID string) (domain.Product, error) {
	if userID == "" {
		return domain.Product{}, apperror.NewValidationError("O usuário responsável é obrigatório.")
	}

	var updated domain.Product
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		products := s.products.WithTx(tx)

		p, err := products.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.transition(&p, domain.StatusLocado); err != nil {
			return err
		}

		if _, err := s.allocator.Reserve(ctx, tx, locationID, p.TotalWeightKg); err != nil {
			return err
		}

		p.LocationID = &locationID
		updated, err = products.Update(ctx, p)
		if err != nil {
			return err
		}

		_, err = s.ledger.Append(ctx, tx, domain.Movement{
			ProductID:    updated.ID,
			Type:         domain.MovementEntrada,
			ToLocationID: &locationID,
			Quantity:     updated.Quantity,
			WeightKg:     updated.TotalWeightKg,
			UserID:       userID,
			Reason:       "Alocação do produto em localização",
		})
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// Move transfere um produto LOCADO para outra localização: libera a origem e
// reserva o destino como unidade única (bloqueio do par em ordem fixa de ID)
// e registra a TRANSFERENCIA. O status permanece LOCADO.
func (s *Service) Move(ctx context.Context, productID, newLocationID, userID, reason string) (domain.Product, error) {
	if reason == "" {
		return domain.Product{}, apperror.NewValidationError("O motivo da movimentação é obrigatório.")
	}
	if userID == "" {
		return domain.Product{}, apperror.NewValidationError("O usuário responsável é obrigatório.")
	}

	var updated domain.Product
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		products := s.products.WithTx(tx)

		p, err := products.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.Status != domain.StatusLocado || p.LocationID == nil {
			return apperror.NewInvalidStateError(p.ID, string(p.Status),
				"movimentação exige produto LOCADO")
		}
		fromLocationID := *p.LocationID

		if _, _, err := s.allocator.Transfer(ctx, tx, fromLocationID, newLocationID, p.TotalWeightKg); err != nil {
			return err
		}

		p.LocationID = &newLocationID
		updated, err = products.Update(ctx, p)
		if err != nil {
			return err
		}

		_, err = s.ledger.Append(ctx, tx, domain.Movement{
			ProductID:      updated.ID,
			Type:           domain.MovementTransferencia,
			FromLocationID: &fromLocationID,
			ToLocationID:   &newLocationID,
			Quantity:       updated.Quantity,
			WeightKg:       updated.TotalWeightKg,
			UserID:         userID,
			Reason:         reason,
		})
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// SplitMove move parte da quantidade de um produto LOCADO para uma nova
// localização: o original retém o restante no slot atual e um novo registro
// de produto nasce LOCADO no destino, carregando a quantidade movida.
// Cada produto mutado recebe exatamente uma movimentação: AJUSTE no
// original, TRANSFERENCIA no novo.
func (s *Service) SplitMove(ctx context.Context, productID string, quantity int, newLocationID, userID, reason string) (domain.Product, domain.Product, error) {
	if reason == "" {
		return domain.Product{}, domain.Product{}, apperror.NewValidationError("O motivo da movimentação é obrigatório.")
	}
	if userID == "" {
		return domain.Product{}, domain.Product{}, apperror.NewValidationError("O usuário responsável é obrigatório.")
	}
	if quantity <= 0 {
		return domain.Product{}, domain.Product{}, apperror.NewValidationError("A quantidade a mover deve ser positiva.")
	}

	var original, split domain.Product
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		products := s.products.WithTx(tx)

		p, err := products.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.Status != domain.StatusLocado || p.LocationID == nil {
			return apperror.NewInvalidStateError(p.ID, string(p.Status),
				"divisão exige produto LOCADO")
		}
		if quantity >= p.Quantity {
			return apperror.NewValidationError("A quantidade a mover deve ser menor que a quantidade do lote; para mover tudo, use a movimentação integral.")
		}
		fromLocationID := *p.LocationID
		movedWeight := float64(quantity) * p.WeightPerUnitKg

		if _, err := s.allocator.Reserve(ctx, tx, newLocationID, movedWeight); err != nil {
			return err
		}
		if _, err := s.allocator.AdjustWeight(ctx, tx, fromLocationID, -movedWeight); err != nil {
			return err
		}

		p.Quantity -= quantity
		p.RecomputeTotalWeight()
		original, err = products.Update(ctx, p)
		if err != nil {
			return err
		}

		child := p
		child.ID = ""
		child.Quantity = quantity
		child.LocationID = &newLocationID
		child.RecomputeTotalWeight()
		split, err = products.Insert(ctx, child)
		if err != nil {
			return err
		}

		if _, err := s.ledger.Append(ctx, tx, domain.Movement{
			ProductID:    original.ID,
			Type:         domain.MovementAjuste,
			ToLocationID: &fromLocationID,
			Quantity:     quantity,
			WeightKg:     movedWeight,
			UserID:       userID,
			Reason:       reason,
		}); err != nil {
			return err
		}
		_, err = s.ledger.Append(ctx, tx, domain.Movement{
			ProductID:      split.ID,
			Type:           domain.MovementTransferencia,
			FromLocationID: &fromLocationID,
			ToLocationID:   &newLocationID,
			Quantity:       quantity,
			WeightKg:       movedWeight,
			UserID:         userID,
			Reason:         reason,
		})
		return err
	})
	if err != nil {
		return domain.Product{}, domain.Product{}, err
	}

	s.logger.Info("Lote dividido entre localizações.", map[string]interface{}{
		"product_id":       original.ID,
		"split_product_id": split.ID,
		"moved_quantity":   quantity,
	})
	return original, split, nil
}

// SplitExit dá baixa parcial em um produto LOCADO: reduz a quantidade,
// ajusta o peso do slot e registra a SAIDA. Se a saída cobre todo o lote,
// a localização é liberada e o produto transiciona para REMOVIDO.
func (s *Service) SplitExit(ctx context.Context, productID string, quantity int, userID, reason string) (domain.Product, error) {
	if reason == "" {
		return domain.Product{}, apperror.NewValidationError("O motivo da saída é obrigatório.")
	}
	if userID == "" {
		return domain.Product{}, apperror.NewValidationError("O usuário responsável é obrigatório.")
	}
	if quantity <= 0 {
		return domain.Product{}, apperror.NewValidationError("A quantidade de saída deve ser positiva.")
	}

	var updated domain.Product
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		products := s.products.WithTx(tx)

		p, err := products.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.Status != domain.StatusLocado || p.LocationID == nil {
			return apperror.NewInvalidStateError(p.ID, string(p.Status),
				"saída parcial exige produto LOCADO")
		}
		if quantity > p.Quantity {
			return apperror.NewValidationError("A quantidade de saída excede a quantidade do lote.")
		}
		fromLocationID := *p.LocationID
		exitWeight := float64(quantity) * p.WeightPerUnitKg

		if quantity == p.Quantity {
			// Saída integral: libera o slot e encerra o lote.
			if _, err := s.allocator.Release(ctx, tx, fromLocationID); err != nil {
				return err
			}
			if err := s.transition(&p, domain.StatusRemovido); err != nil {
				return err
			}
			p.LocationID = nil
		} else {
			if _, err := s.allocator.AdjustWeight(ctx, tx, fromLocationID, -exitWeight); err != nil {
				return err
			}
		}

		p.Quantity -= quantity
		p.RecomputeTotalWeight()
		updated, err = products.Update(ctx, p)
		if err != nil {
			return err
		}

		_, err = s.ledger.Append(ctx, tx, domain.Movement{
			ProductID:      updated.ID,
			Type:           domain.MovementSaida,
			FromLocationID: &fromLocationID,
			Quantity:       quantity,
			WeightKg:       exitWeight,
			UserID:         userID,
			Reason:         reason,
		})
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// AddStock incrementa a quantidade de um produto LOCADO, revalidando a
// capacidade na localização vinculada, e registra a ENTRADA adicional.
func (s *Service) AddStock(ctx context.Context, productID string, quantity int, userID, reason string) (domain.Product, error) {
	if reason == "" {
		return domain.Product{}, apperror.NewValidationError("O motivo da entrada é obrigatório.")
	}
	if userID == "" {
		return domain.Product{}, apperror.NewValidationError("O usuário responsável é obrigatório.")
	}
	if quantity <= 0 {
		return domain.Product{}, apperror.NewValidationError("A quantidade a adicionar deve ser positiva.")
	}

	var updated domain.Product
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		products := s.products.WithTx(tx)

		p, err := products.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.Status != domain.StatusLocado || p.LocationID == nil {
			return apperror.NewInvalidStateError(p.ID, string(p.Status),
				"adição de estoque exige produto LOCADO")
		}
		locationID := *p.LocationID
		addedWeight := float64(quantity) * p.WeightPerUnitKg

		if _, err := s.allocator.AdjustWeight(ctx, tx, locationID, addedWeight); err != nil {
			return err
		}

		p.Quantity += quantity
		p.RecomputeTotalWeight()
		updated, err = products.Update(ctx, p)
		if err != nil {
			return err
		}

		_, err = s.ledger.Append(ctx, tx, domain.Movement{
			ProductID:    updated.ID,
			Type:         domain.MovementEntrada,
			ToLocationID: &locationID,
			Quantity:     quantity,
			WeightKg:     addedWeight,
			UserID:       userID,
			Reason:       reason,
		})
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// Remove dá baixa definitiva em um produto (soft delete — o registro nunca é
// deletado fisicamente). Legal a partir de CADASTRADO, AGUARDANDO_LOCACAO e
// LOCADO. Libera a localização vinculada, se houver, e registra SAIDA (lote
// locado) ou AJUSTE sem localização (lote nunca alocado).
func (s *Service) Remove(ctx context.Context, productID, userID, reason string) (domain.Product, error) {
	if reason == "" {
		return domain.Product{}, apperror.NewValidationError("O motivo da remoção é obrigatório.")
	}
	if userID == "" {
		return domain.Product{}, apperror.NewValidationError("O usuário responsável é obrigatório.")
	}

	var updated domain.Product
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		products := s.products.WithTx(tx)

		p, err := products.FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if err := s.transition(&p, domain.StatusRemovido); err != nil {
			return err
		}

		movement := domain.Movement{
			ProductID: p.ID,
			Type:      domain.MovementAjuste,
			Quantity:  p.Quantity,
			WeightKg:  p.TotalWeightKg,
			UserID:    userID,
			Reason:    reason,
		}
		if p.LocationID != nil {
			fromLocationID := *p.LocationID
			if _, err := s.allocator.Release(ctx, tx, fromLocationID); err != nil {
				return err
			}
			movement.Type = domain.MovementSaida
			movement.FromLocationID = &fromLocationID
			p.LocationID = nil
		}

		updated, err = products.Update(ctx, p)
		if err != nil {
			return err
		}

		_, err = s.ledger.Append(ctx, tx, movement)
		return err
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.Info("Produto removido do estoque.", map[string]interface{}{
		"product_id": updated.ID,
		"reason":     reason,
	})
	return updated, nil
}

// GetByID busca um produto pelo ID.
func (s *Service) GetByID(ctx context.Context, id string) (domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// List busca produtos com filtros e paginação.
func (s *Service) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return s.products.FindAll(ctx, filter)
}
