package locationservice

import (
	"context"
	"database/sql"
	"fmt"

	"semestock/internal/domain"
	apperror "semestock/internal/errors"
	"semestock/internal/pkg/logger"
	"semestock/internal/repository"
)

// Allocator é o componente de alocação de capacidade: dono exclusivo da
// ocupação e do peso corrente de cada localização. Lógica pura de capacidade —
// não conhece o significado de negócio dos produtos.
//
// Os métodos recebem a transação da operação composta em andamento (tx pode
// ser nil em modo degradado); a serialização por agregado vem do bloqueio de
// linha (FOR UPDATE) dentro dessa transação.
type Allocator struct {
	locations repository.LocationStore
	logger    logger.Logger
}

// NewAllocator cria e retorna uma nova instância do Alocador de Localizações.
func NewAllocator(locations repository.LocationStore, logger logger.Logger) *Allocator {
	return &Allocator{locations: locations, logger: logger}
}

// Reserve ocupa uma localização livre com o peso informado.
// Falha com NotFoundError (localização desconhecida), ConflictError (já
// ocupada — regra binária: um produto por slot, independente da folga de kg)
// ou CapacityError (peso acima da capacidade máxima).
func (a *Allocator) Reserve(ctx context.Context, tx *sql.Tx, locationID string, weightKg float64) (domain.Location, error) {
	if weightKg < 0 {
		return domain.Location{}, apperror.NewValidationError("O peso a reservar não pode ser negativo.")
	}

	locations := a.locations.WithTx(tx)

	loc, err := locations.FindByIDForUpdate(ctx, locationID)
	if err != nil {
		return domain.Location{}, err
	}
	if loc.Occupied {
		return domain.Location{}, apperror.NewConflictError(
			fmt.Sprintf("Localização %s já está ocupada.", loc.Code))
	}
	if weightKg > loc.MaxCapacityKg {
		return domain.Location{}, apperror.NewCapacityError(loc.ID, loc.MaxCapacityKg, weightKg)
	}

	return locations.UpdateOccupancy(ctx, loc.ID, true, weightKg)
}

// AdjustWeight aplica um delta (kg) ao peso corrente de uma localização ocupada.
// Falha com CapacityError se o resultado excede a capacidade ou fica negativo.
func (a *Allocator) AdjustWeight(ctx context.Context, tx *sql.Tx, locationID string, deltaKg float64) (domain.Location, error) {
	locations := a.locations.WithTx(tx)

	loc, err := locations.FindByIDForUpdate(ctx, locationID)
	if err != nil {
		return domain.Location{}, err
	}
	if !loc.Occupied {
		return domain.Location{}, apperror.NewInvalidStateError(loc.ID, "livre",
			"ajuste de peso exige localização ocupada")
	}

	newWeight := loc.CurrentWeightKg + deltaKg
	if newWeight < 0 || newWeight > loc.MaxCapacityKg {
		return domain.Location{}, apperror.NewCapacityError(loc.ID, loc.MaxCapacityKg, newWeight)
	}

	return locations.UpdateOccupancy(ctx, loc.ID, true, newWeight)
}

// Release libera uma localização (occupied=false, peso zerado).
// Idempotente: liberar uma localização já livre é um no-op — simplifica os
// caminhos de retry e limpeza.
func (a *Allocator) Release(ctx context.Context, tx *sql.Tx, locationID string) (domain.Location, error) {
	locations := a.locations.WithTx(tx)

	loc, err := locations.FindByIDForUpdate(ctx, locationID)
	if err != nil {
		return domain.Location{}, err
	}
	if !loc.Occupied && loc.CurrentWeightKg == 0 {
		return loc, nil
	}

	return locations.UpdateOccupancy(ctx, loc.ID, false, 0)
}

// Transfer move a carga de uma localização para outra como unidade única:
// libera a origem e reserva o destino. As duas linhas são bloqueadas em ordem
// crescente de ID (ordem global fixa), evitando deadlock contra uma
// transferência concorrente no sentido oposto.
func (a *Allocator) Transfer(ctx context.Context, tx *sql.Tx, fromLocationID, toLocationID string, weightKg float64) (domain.Location, domain.Location, error) {
	if fromLocationID == toLocationID {
		return domain.Location{}, domain.Location{},
			apperror.NewValidationError("Origem e destino da transferência devem ser localizações distintas.")
	}

	locations := a.locations.WithTx(tx)

	pair, err := locations.FindPairForUpdate(ctx, fromLocationID, toLocationID)
	if err != nil {
		return domain.Location{}, domain.Location{}, err
	}
	from, to := pair[fromLocationID], pair[toLocationID]

	if !from.Occupied {
		return domain.Location{}, domain.Location{}, apperror.NewInvalidStateError(from.ID, "livre",
			"transferência exige origem ocupada")
	}
	if to.Occupied {
		return domain.Location{}, domain.Location{}, apperror.NewConflictError(
			fmt.Sprintf("Localização de destino %s já está ocupada.", to.Code))
	}
	if weightKg > to.MaxCapacityKg {
		return domain.Location{}, domain.Location{}, apperror.NewCapacityError(to.ID, to.MaxCapacityKg, weightKg)
	}

	from, err = locations.UpdateOccupancy(ctx, from.ID, false, 0)
	if err != nil {
		return domain.Location{}, domain.Location{}, err
	}
	to, err = locations.UpdateOccupancy(ctx, to.ID, true, weightKg)
	if err != nil {
		return domain.Location{}, domain.Location{}, err
	}

	a.logger.Debug("Transferência de capacidade concluída.", map[string]interface{}{
		"from_location": from.Code,
		"to_location":   to.Code,
		"weight_kg":     weightKg,
	})
	return from, to, nil
}
