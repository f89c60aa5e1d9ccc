package productservice

import (
	"context"
	"database/sql"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
)

// Transições guiadas pela retirada (AGUARDANDO_RETIRADA ↔ LOCADO/RETIRADO).
// Estes métodos são invocados apenas pelo fluxo de retirada, dentro da
// transação dele — nunca diretamente pela camada de orquestração.

// BeginWithdrawal coloca um produto LOCADO em AGUARDANDO_RETIRADA.
// Nada se move fisicamente, então nenhuma movimentação é registrada.
func (s *Service) BeginWithdrawal(ctx context.Context, tx *sql.Tx, productID string) (domain.Product, error) {
	products := s.products.WithTx(tx)

	p, err := products.FindByIDForUpdate(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.transition(&p, domain.StatusAguardandoRetirada); err != nil {
		return domain.Product{}, err
	}
	return products.Update(ctx, p)
}

// FinishWithdrawal consuma a retirada confirmada de um produto em
// AGUARDANDO_RETIRADA. quantity <= 0 ou igual à quantidade do lote executa a
// retirada TOTAL: transiciona para RETIRADO, libera a localização e registra
// a SAIDA integral. Uma quantidade menor executa a retirada PARCIAL: reduz a
// quantidade, ajusta o peso do slot, reverte para LOCADO e registra a SAIDA
// parcial.
func (s *Service) FinishWithdrawal(ctx context.Context, tx *sql.Tx, productID string, quantity int, userID, reason string) (domain.Product, error) {
	products := s.products.WithTx(tx)

	p, err := products.FindByIDForUpdate(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if p.Status != domain.StatusAguardandoRetirada || p.LocationID == nil {
		return domain.Product{}, apperror.NewInvalidStateError(p.ID, string(p.Status),
			"confirmação de retirada exige produto AGUARDANDO_RETIRADA")
	}
	if quantity > p.Quantity {
		return domain.Product{}, apperror.NewValidationError("A quantidade da retirada excede a quantidade do lote.")
	}
	fromLocationID := *p.LocationID

	total := quantity <= 0 || quantity == p.Quantity

	var exitQuantity int
	var exitWeight float64
	if total {
		exitQuantity = p.Quantity
		exitWeight = p.TotalWeightKg

		if _, err := s.allocator.Release(ctx, tx, fromLocationID); err != nil {
			return domain.Product{}, err
		}
		if err := s.transition(&p, domain.StatusRetirado); err != nil {
			return domain.Product{}, err
		}
		p.Quantity = 0
		p.LocationID = nil
	} else {
		exitQuantity = quantity
		exitWeight = float64(quantity) * p.WeightPerUnitKg

		if _, err := s.allocator.AdjustWeight(ctx, tx, fromLocationID, -exitWeight); err != nil {
			return domain.Product{}, err
		}
		if err := s.transition(&p, domain.StatusLocado); err != nil {
			return domain.Product{}, err
		}
		p.Quantity -= quantity
	}
	p.RecomputeTotalWeight()

	updated, err := products.Update(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}

	if _, err := s.ledger.Append(ctx, tx, domain.Movement{
		ProductID:      updated.ID,
		Type:           domain.MovementSaida,
		FromLocationID: &fromLocationID,
		Quantity:       exitQuantity,
		WeightKg:       exitWeight,
		UserID:         userID,
		Reason:         reason,
	}); err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// ReleaseWithdrawal reverte um produto de AGUARDANDO_RETIRADA para LOCADO
// (cancelamento da solicitação). A localização permanece alocada — nada se
// moveu fisicamente — e nenhuma movimentação é registrada.
func (s *Service) ReleaseWithdrawal(ctx context.Context, tx *sql.Tx, productID string) (domain.Product, error) {
	products := s.products.WithTx(tx)

	p, err := products.FindByIDForUpdate(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if p.Status != domain.StatusAguardandoRetirada {
		return domain.Product{}, apperror.NewInvalidStateError(p.ID, string(p.Status),
			"cancelamento de retirada exige produto AGUARDANDO_RETIRADA")
	}
	if err := s.transition(&p, domain.StatusLocado); err != nil {
		return domain.Product{}, err
	}
	return products.Update(ctx, p)
}
