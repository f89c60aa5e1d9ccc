package locationservice

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

// Service implementa a administração de câmaras e o provisionamento em massa
// das suas localizações (produto cartesiano dos quatro eixos).
type Service struct {
	chambers  repository.ChamberStore
	locations repository.LocationStore
	txManager database.TxManager
	logger    logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Localizações.
func NewService(chambers repository.ChamberStore, locations repository.LocationStore, txManager database.TxManager, logger logger.Logger) *Service {
	return &Service{
		chambers:  chambers,
		locations: locations,
		txManager: txManager,
		logger:    logger,
	}
}

// CreateChamber cria uma câmara e provisiona todas as suas localizações
// em uma única unidade atômica.
func (s *Service) CreateChamber(ctx context.Context, chamber domain.Chamber, policy domain.CapacityPolicy) (domain.Chamber, error) {
	if chamber.Name == "" {
		return domain.Chamber{}, apperror.NewValidationError("O nome da câmara é obrigatório.")
	}
	if !chamber.Dimensions.Valid() {
		return domain.Chamber{}, apperror.NewValidationError("Todas as dimensões da câmara (quadras, lados, filas, andares) devem ser positivas.")
	}
	if policy.DefaultCapacityKg <= 0 {
		return domain.Chamber{}, apperror.NewValidationError("A capacidade padrão por localização deve ser positiva.")
	}
	if chamber.Status == "" {
		chamber.Status = domain.ChamberActive
	}

	var created domain.Chamber
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = s.chambers.WithTx(tx).Insert(ctx, chamber)
		if err != nil {
			return err
		}
		locations := buildLocations(created.ID, created.Dimensions, policy)
		return s.locations.WithTx(tx).BulkInsert(ctx, locations)
	})
	if err != nil {
		return domain.Chamber{}, err
	}

	s.logger.Info("Câmara criada e provisionada.", map[string]interface{}{
		"chamber_id": created.ID,
		"name":       created.Name,
		"locations":  created.Dimensions.TotalLocations(),
	})
	return created, nil
}

// BulkProvision (re)gera as localizações de uma câmara existente como o
// produto cartesiano das novas dimensões, com códigos determinísticos.
// Falha com ConflictError se já existem localizações e overwrite não foi
// pedido; o próprio overwrite falha se qualquer localização está ocupada
// (guarda contra órfanar estoque vivo). Retorna o total provisionado.
func (s *Service) BulkProvision(ctx context.Context, chamberID string, dims domain.ChamberDimensions, policy domain.CapacityPolicy, overwrite bool) (int, error) {
	if !dims.Valid() {
		return 0, apperror.NewValidationError("Todas as dimensões da câmara (quadras, lados, filas, andares) devem ser positivas.")
	}
	if policy.DefaultCapacityKg <= 0 {
		return 0, apperror.NewValidationError("A capacidade padrão por localização deve ser positiva.")
	}

	total := dims.TotalLocations()
	err := s.txManager.Atomic(ctx, func(tx *sql.Tx) error {
		chambers := s.chambers.WithTx(tx)
		locations := s.locations.WithTx(tx)

		chamber, err := chambers.FindByID(ctx, chamberID)
		if err != nil {
			return err
		}

		existing, err := locations.CountByChamber(ctx, chamberID)
		if err != nil {
			return err
		}
		if existing > 0 {
			if !overwrite {
				return apperror.NewConflictError(
					fmt.Sprintf("A câmara %s já possui %d localizações. Use overwrite para regenerar.", chamber.Name, existing))
			}
			occupied, err := locations.CountOccupiedByChamber(ctx, chamberID)
			if err != nil {
				return err
			}
			if occupied > 0 {
				return apperror.NewConflictError(
					fmt.Sprintf("A câmara %s possui %d localizações ocupadas; libere o estoque antes de regenerar.", chamber.Name, occupied))
			}
			if err := locations.DeleteByChamber(ctx, chamberID); err != nil {
				return err
			}
		}

		chamber.Dimensions = dims
		if _, err := chambers.Update(ctx, chamber); err != nil {
			return err
		}

		return locations.BulkInsert(ctx, buildLocations(chamberID, dims, policy))
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Localizações da câmara provisionadas.", map[string]interface{}{
		"chamber_id": chamberID,
		"locations":  total,
		"overwrite":  overwrite,
	})
	return total, nil
}

// buildLocations materializa a grade de localizações de uma câmara:
// uma por coordenada, livre, com código derivado e capacidade da política.
func buildLocations(chamberID string, dims domain.ChamberDimensions, policy domain.CapacityPolicy) []domain.Location {
	coords := domain.GenerateCoordinates(dims)
	locations := make([]domain.Location, 0, len(coords))
	for _, c := range coords {
		locations = append(locations, domain.Location{
			ChamberID:       chamberID,
			Coordinate:      c,
			Code:            c.Code(),
			Occupied:        false,
			MaxCapacityKg:   policy.CapacityFor(c),
			CurrentWeightKg: 0,
		})
	}
	return locations
}

// GetChamber busca uma câmara pelo ID.
func (s *Service) GetChamber(ctx context.Context, id string) (domain.Chamber, error) {
	return s.chambers.FindByID(ctx, id)
}

// ListChambers lista todas as câmaras.
func (s *Service) ListChambers(ctx context.Context) ([]domain.Chamber, error) {
	return s.chambers.FindAll(ctx)
}

// UpdateChamber atualiza nome, status e alvos ambientais de uma câmara.
// Dimensões mudam apenas via BulkProvision.
func (s *Service) UpdateChamber(ctx context.Context, chamber domain.Chamber) (domain.Chamber, error) {
	if chamber.ID == "" {
		return domain.Chamber{}, apperror.NewValidationError("O ID da câmara é obrigatório.")
	}
	current, err := s.chambers.FindByID(ctx, chamber.ID)
	if err != nil {
		return domain.Chamber{}, err
	}

	if chamber.Name != "" {
		current.Name = chamber.Name
	}
	if chamber.Status != "" {
		if chamber.Status != domain.ChamberActive && chamber.Status != domain.ChamberInactive {
			return domain.Chamber{}, apperror.NewValidationError(
				fmt.Sprintf("Status de câmara inválido: %s.", chamber.Status))
		}
		current.Status = chamber.Status
	}
	current.TargetTemperature = chamber.TargetTemperature
	current.TargetHumidity = chamber.TargetHumidity

	return s.chambers.Update(ctx, current)
}

// GetLocation busca uma localização pelo ID.
func (s *Service) GetLocation(ctx context.Context, id string) (domain.Location, error) {
	return s.locations.FindByID(ctx, id)
}

// ListLocations lista as localizações de uma câmara ordenadas pelos eixos
// (consulta somente-leitura da árvore quadra → lado → fila → andar).
func (s *Service) ListLocations(ctx context.Context, chamberID string) ([]domain.Location, error) {
	if _, err := s.chambers.FindByID(ctx, chamberID); err != nil {
		return nil, err
	}
	return s.locations.ListByChamber(ctx, chamberID)
}
