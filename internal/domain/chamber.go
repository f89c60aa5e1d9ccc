package domain

import (
	"time"
)

// ChamberStatus representa o estado operacional de uma câmara fria.
type ChamberStatus string

const (
	ChamberActive   ChamberStatus = "ATIVA"
	ChamberInactive ChamberStatus = "INATIVA"
)

// ChamberDimensions define a contagem de cada eixo da grade de localizações.
type ChamberDimensions struct {
	Quadras int `json:"quadras"`
	Lados   int `json:"lados"`
	Filas   int `json:"filas"`
	Andares int `json:"andares"`
}

// TotalLocations retorna o número de localizações do produto cartesiano dos eixos.
func (d ChamberDimensions) TotalLocations() int {
	return d.Quadras * d.Lados * d.Filas * d.Andares
}

// Valid verifica se todos os eixos têm pelo menos uma posição.
func (d ChamberDimensions) Valid() bool {
	return d.Quadras > 0 && d.Lados > 0 && d.Filas > 0 && d.Andares > 0
}

// Chamber representa uma câmara fria subdividida na grade de 4 eixos.
// Os alvos ambientais são apenas configuração de referência: a ingestão de
// telemetria de sensores fica fora deste sistema.
type Chamber struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Dimensions        ChamberDimensions `json:"dimensions"`
	Status            ChamberStatus     `json:"status"`
	TargetTemperature float64           `json:"target_temperature"` // °C
	TargetHumidity    float64           `json:"target_humidity"`    // % UR
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
