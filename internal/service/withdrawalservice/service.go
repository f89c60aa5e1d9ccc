package withdrawalservice

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
	"semestock/internal/pkg/database"
	"semestock/internal/pkg/logger"
	"semestock/internal/repository"
)

// ProductWorkflow é o contrato das transições de retirada da máquina de
// estados do produto (internal/service/productservice). Os métodos rodam
// dentro da transação desta camada: a mudança da solicitação e a do produto
// commitam (ou revertem) juntas.
type ProductWorkflow interface {
	BeginWithdrawal(ctx context.Context, tx *sql.Tx, productID string) (domain.Product, error)
	FinishWithdrawal(ctx context.Context, tx *sql.Tx, productID string, quantity int, userID, reason string) (domain.Product, error)
	ReleaseWithdrawal(ctx context.Context, tx *sql.Tx, productID string) (domain.Product, error)
}

// Service implementa o fluxo de retirada em dois atores: um solicita, outro
// confirma ou cancela. A separação de papéis (solicitante ≠ confirmador) é
// garantida pela camada de orquestração; aqui apenas registramos as
// identidades em cada registro.
type Service struct {
	withdrawals repository.WithdrawalStore
	products    ProductWorkflow
	txManager   database.TxManager
	logger      logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Retiradas.
func NewService(withdrawals repository.WithdrawalStore, products ProductWorkflow, txManager database.TxManager, logger logger.Logger) *Service {
	return &Service{
		withdrawals: withdrawals,
		products:    products,
		txManager:   txManager,
		logger:      logger,
	}
}

// RequestInput agrega os dados de abertura de uma solicitação de retirada.
type RequestInput struct {
	ProductID   string
	Kind        domain.WithdrawalKind
	Quantity    int
	RequestedBy string
	Reason      string
}

func (in RequestInput) validate() error {
	if in.ProductID == "" {
		return apperror.NewValidationError("O ID do produto é obrigatório.")
	}
	if in.RequestedBy == "" {
		return apperror.NewValidationError("O solicitante é obrigatório.")
	}
	if in.Reason == "" {
		return apperror.NewValidationError("O motivo da retirada é obrigatório.")
	}
	switch in.Kind {
	case domain.WithdrawalTotal:
		// Quantidade é ignorada: a retirada cobre o lote inteiro na confirmação.
	case domain.WithdrawalParcial:
		if in.Quantity <= 0 {
			return apperror.NewValidationError("Retirada PARCIAL exige quantidade positiva.")
		}
	default:
		return apperror.NewValidationError(fmt.Sprintf("Tipo de retirada inválido: %s.", in.Kind))
	}
	return nil
}

// Request abre uma solicitação de retirada para um produto LOCADO e o coloca
// em AGUARDANDO_RETIRADA. Falha com ConflictError se o produto já tem uma
// solicitação PENDENTE (no máximo uma em aberto por produto).
func (s *Service) Request(ctx context.Context, input RequestInput) (domain.WithdrawalRequest, error) {
	if err := input.validate(); err != nil {
		return domain.WithdrawalRequest{}, err
	}

	var created domain.WithdrawalRequest
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		withdrawals := s.withdrawals.WithTx(tx)

		pending, err := withdrawals.HasPendingForProduct(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if pending {
			return apperror.NewConflictError(
				fmt.Sprintf("O produto %s já possui uma solicitação de retirada pendente.", input.ProductID))
		}

		// Bloqueia a linha do produto e exige LOCADO (transição da tabela).
		product, err := s.products.BeginWithdrawal(ctx, tx, input.ProductID)
		if err != nil {
			// Corrida de duas aberturas simultâneas: ambas passam pela
			// checagem de pendência e a perdedora só encontra o produto já
			// em AGUARDANDO_RETIRADA ao obter o bloqueio da linha. Recheca
			// a pendência para devolver o mesmo erro do caminho sequencial.
			if _, ok := err.(*apperror.InvalidTransitionError); ok {
				if pending, checkErr := withdrawals.HasPendingForProduct(ctx, input.ProductID); checkErr == nil && pending {
					return apperror.NewConflictError(
						fmt.Sprintf("O produto %s já possui uma solicitação de retirada pendente.", input.ProductID))
				}
			}
			return err
		}

		quantity := input.Quantity
		if input.Kind == domain.WithdrawalTotal {
			quantity = product.Quantity
		}

		created, err = withdrawals.Insert(ctx, domain.WithdrawalRequest{
			ProductID:   input.ProductID,
			Kind:        input.Kind,
			Quantity:    quantity,
			Status:      domain.WithdrawalPendente,
			RequestedBy: input.RequestedBy,
			Reason:      input.Reason,
		})
		return err
	})
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}

	s.logger.Info("Solicitação de retirada aberta.", map[string]interface{}{
		"request_id":   created.ID,
		"product_id":   created.ProductID,
		"kind":         created.Kind,
		"requested_by": created.RequestedBy,
	})
	return created, nil
}

// Confirm resolve uma solicitação PENDENTE como CONFIRMADO e consuma a
// retirada no produto: TOTAL leva a RETIRADO com liberação da localização;
// PARCIAL reduz a quantidade e reverte para LOCADO. Em ambos os casos uma
// SAIDA é registrada no livro — tudo em uma unidade atômica.
// Confirmar uma solicitação já resolvida falha com InvalidStateError.
func (s *Service) Confirm(ctx context.Context, requestID, confirmedBy, notes string) (domain.WithdrawalRequest, error) {
	if confirmedBy == "" {
		return domain.WithdrawalRequest{}, apperror.NewValidationError("O confirmador é obrigatório.")
	}

	var resolved domain.WithdrawalRequest
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		withdrawals := s.withdrawals.WithTx(tx)

		w, err := withdrawals.FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if w.Status.IsTerminal() {
			return apperror.NewInvalidStateError(w.ID, string(w.Status),
				"a solicitação de retirada já foi resolvida")
		}

		now := time.Now().UTC()
		w.Status = domain.WithdrawalConfirmado
		w.ResolvedBy = &confirmedBy
		w.ResolvedAt = &now
		if notes != "" {
			w.Notes = notes
		}
		resolved, err = withdrawals.Update(ctx, w)
		if err != nil {
			return err
		}

		quantity := w.Quantity
		if w.Kind == domain.WithdrawalTotal {
			quantity = 0 // retirada integral, qualquer que seja a quantidade corrente
		}

		// Último passo: transição do produto + SAIDA no livro.
		_, err = s.products.FinishWithdrawal(ctx, tx, w.ProductID, quantity, confirmedBy, w.Reason)
		return err
	})
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}

	s.logger.Info("Retirada confirmada.", map[string]interface{}{
		"request_id":   resolved.ID,
		"product_id":   resolved.ProductID,
		"confirmed_by": confirmedBy,
	})
	return resolved, nil
}

// Cancel resolve uma solicitação PENDENTE como CANCELADO e reverte o produto
// para LOCADO. A localização permanece alocada — nada se moveu fisicamente —
// e o cancelamento em si não gera movimentação no livro.
// Cancelar uma solicitação já resolvida falha com InvalidStateError.
func (s *Service) Cancel(ctx context.Context, requestID, canceledBy, reason string) (domain.WithdrawalRequest, error) {
	if canceledBy == "" {
		return domain.WithdrawalRequest{}, apperror.NewValidationError("O cancelador é obrigatório.")
	}

	var resolved domain.WithdrawalRequest
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		withdrawals := s.withdrawals.WithTx(tx)

		w, err := withdrawals.FindByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if w.Status.IsTerminal() {
			return apperror.NewInvalidStateError(w.ID, string(w.Status),
				"a solicitação de retirada já foi resolvida")
		}

		if _, err := s.products.ReleaseWithdrawal(ctx, tx, w.ProductID); err != nil {
			return err
		}

		now := time.Now().UTC()
		w.Status = domain.WithdrawalCancelado
		w.ResolvedBy = &canceledBy
		w.ResolvedAt = &now
		if reason != "" {
			w.Notes = reason
		}
		resolved, err = withdrawals.Update(ctx, w)
		return err
	})
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}

	s.logger.Info("Solicitação de retirada cancelada.", map[string]interface{}{
		"request_id":  resolved.ID,
		"product_id":  resolved.ProductID,
		"canceled_by": canceledBy,
	})
	return resolved, nil
}

// GetByID busca uma solicitação pelo ID.
func (s *Service) GetByID(ctx context.Context, id string) (domain.WithdrawalRequest, error) {
	return s.withdrawals.FindByID(ctx, id)
}

// ListByProduct retorna as solicitações de um produto, da mais recente
// para a mais antiga.
func (s *Service) ListByProduct(ctx context.Context, productID string) ([]domain.WithdrawalRequest, error) {
	if productID == "" {
		return nil, apperror.NewValidationError("O ID do produto é obrigatório.")
	}
	return s.withdrawals.ListByProduct(ctx, productID)
}
