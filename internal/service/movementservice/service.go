package movementservice

import (
	"context"
	"database/sql"
	"fmt"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
	"semestock/internal/pkg/database"
	"semestock/internal/pkg/logger"
	"semestock/internal/repository"
)

// Service implementa o livro de movimentações: log durável, append-only e
// estritamente ordenado de todo evento que afeta o estoque. Entradas nunca
// são atualizadas nem deletadas — são a única fonte de verdade histórica.
type Service struct {
	movements repository.MovementStore
	products  repository.ProductStore
	txManager database.TxManager
	logger    logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Movimentações.
func NewService(movements repository.MovementStore, products repository.ProductStore, txManager database.TxManager, logger logger.Logger) *Service {
	return &Service{
		movements: movements,
		products:  products,
		txManager: txManager,
		logger:    logger,
	}
}

// Append valida e grava uma entrada no livro dentro da transação da operação
// composta em andamento (o append é sempre o último passo dessa operação:
// se falhar, a transação inteira reverte). A sequência é calculada com a
// linha do produto já bloqueada pelo chamador, o que serializa o fluxo por
// produto e garante numeração estritamente monotônica.
func (s *Service) Append(ctx context.Context, tx *sql.Tx, m domain.Movement) (domain.Movement, error) {
	if err := validate(m); err != nil {
		return domain.Movement{}, err
	}

	// Integridade referencial: o produto da entrada precisa existir.
	if _, err := s.products.WithTx(tx).FindByID(ctx, m.ProductID); err != nil {
		return domain.Movement{}, err
	}

	movements := s.movements.WithTx(tx)

	seq, err := movements.NextSequence(ctx, m.ProductID)
	if err != nil {
		return domain.Movement{}, err
	}
	m.Sequence = seq

	created, err := movements.Insert(ctx, m)
	if err != nil {
		return domain.Movement{}, err
	}

	s.logger.Debug("Movimentação registrada no livro.", map[string]interface{}{
		"movement_id": created.ID,
		"product_id":  created.ProductID,
		"type":        created.Type,
		"sequence":    created.Sequence,
	})
	return created, nil
}

// Record grava uma entrada avulsa (ajuste manual de auditoria) fora de uma
// operação composta. Bloqueia a linha do produto para serializar o fluxo de
// sequência e executa o append na sua própria unidade atômica.
func (s *Service) Record(ctx context.Context, m domain.Movement) (domain.Movement, error) {
	var created domain.Movement
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		if _, err := s.products.WithTx(tx).FindByIDForUpdate(ctx, m.ProductID); err != nil {
			return err
		}
		var err error
		created, err = s.Append(ctx, tx, m)
		return err
	})
	if err != nil {
		return domain.Movement{}, err
	}
	return created, nil
}

// ListByProduct retorna o histórico ordenado de um produto
// (timestamp ascendente, sequência como desempate).
func (s *Service) ListByProduct(ctx context.Context, productID string) ([]domain.Movement, error) {
	if productID == "" {
		return nil, apperror.NewValidationError("O ID do produto é obrigatório.")
	}
	return s.movements.ListByProduct(ctx, productID)
}

// ListByLocation retorna o histórico ordenado dos eventos que tocaram uma
// localização, como origem ou destino.
func (s *Service) ListByLocation(ctx context.Context, locationID string) ([]domain.Movement, error) {
	if locationID == "" {
		return nil, apperror.NewValidationError("O ID da localização é obrigatório.")
	}
	return s.movements.ListByLocation(ctx, locationID)
}

// validate aplica as regras de presença de localização por tipo de evento:
// TRANSFERENCIA exige origem e destino; ENTRADA exige apenas destino;
// SAIDA exige apenas origem; AJUSTE proíbe origem e aceita destino opcional.
func validate(m domain.Movement) error {
	if m.ProductID == "" {
		return apperror.NewValidationError("Movimentação requer o ID do produto.")
	}
	if m.UserID == "" {
		return apperror.NewValidationError("Movimentação requer o usuário responsável.")
	}
	if m.Reason == "" {
		return apperror.NewValidationError("Movimentação requer um motivo.")
	}
	if m.Quantity <= 0 {
		return apperror.NewValidationError("A quantidade da movimentação deve ser positiva.")
	}
	if m.WeightKg < 0 {
		return apperror.NewValidationError("O peso da movimentação não pode ser negativo.")
	}

	hasFrom := m.FromLocationID != nil && *m.FromLocationID != ""
	hasTo := m.ToLocationID != nil && *m.ToLocationID != ""

	switch m.Type {
	case domain.MovementTransferencia:
		if !hasFrom || !hasTo {
			return apperror.NewValidationError("TRANSFERENCIA exige localização de origem e de destino.")
		}
	case domain.MovementEntrada:
		if !hasTo || hasFrom {
			return apperror.NewValidationError("ENTRADA exige apenas localização de destino.")
		}
	case domain.MovementSaida:
		if !hasFrom || hasTo {
			return apperror.NewValidationError("SAIDA exige apenas localização de origem.")
		}
	case domain.MovementAjuste:
		if hasFrom {
			return apperror.NewValidationError("AJUSTE não admite localização de origem.")
		}
	default:
		return apperror.NewValidationError(fmt.Sprintf("Tipo de movimentação desconhecido: %s.", m.Type))
	}
	return nil
}
