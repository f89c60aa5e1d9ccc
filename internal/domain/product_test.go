package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"semestock/internal/domain"
)

// TestDefaultTransitions testa a tabela de transições do ciclo de vida do produto.
func TestDefaultTransitions(t *testing.T) {
	table := domain.DefaultTransitions()

	// Transições previstas.
	assert.True(t, table.Allowed(domain.StatusCadastrado, domain.StatusAguardandoLocacao))
	assert.True(t, table.Allowed(domain.StatusCadastrado, domain.StatusLocado))
	assert.True(t, table.Allowed(domain.StatusCadastrado, domain.StatusRemovido))
	assert.True(t, table.Allowed(domain.StatusAguardandoLocacao, domain.StatusLocado))
	assert.True(t, table.Allowed(domain.StatusLocado, domain.StatusAguardandoRetirada))
	assert.True(t, table.Allowed(domain.StatusAguardandoRetirada, domain.StatusRetirado))
	assert.True(t, table.Allowed(domain.StatusAguardandoRetirada, domain.StatusLocado))

	// Atalhos proibidos: a retirada sempre passa por AGUARDANDO_RETIRADA.
	assert.False(t, table.Allowed(domain.StatusCadastrado, domain.StatusRetirado))
	assert.False(t, table.Allowed(domain.StatusLocado, domain.StatusRetirado))

	// Estados terminais não têm saída.
	assert.False(t, table.Allowed(domain.StatusRetirado, domain.StatusLocado))
	assert.False(t, table.Allowed(domain.StatusRemovido, domain.StatusCadastrado))
}

// TestProductStatus_IsTerminal testa a identificação dos estados finais.
func TestProductStatus_IsTerminal(t *testing.T) {
	assert.True(t, domain.StatusRetirado.IsTerminal())
	assert.True(t, domain.StatusRemovido.IsTerminal())
	assert.False(t, domain.StatusLocado.IsTerminal())
	assert.False(t, domain.StatusAguardandoRetirada.IsTerminal())
}

// TestRecomputeTotalWeight garante que o peso total é sempre derivado de
// quantidade × peso por unidade.
func TestRecomputeTotalWeight(t *testing.T) {
	p := domain.Product{Quantity: 2, WeightPerUnitKg: 25}
	p.RecomputeTotalWeight()
	assert.Equal(t, 50.0, p.TotalWeightKg)

	p.Quantity = 0
	p.RecomputeTotalWeight()
	assert.Equal(t, 0.0, p.TotalWeightKg)
}
