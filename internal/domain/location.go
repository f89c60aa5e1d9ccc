package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Coordinate é o endereço físico de uma localização dentro da câmara,
// em quatro eixos: quadra, lado, fila e andar.
// O lado é sempre armazenado como índice numérico (1, 2, 3...); a forma
// alfabética (A, B, C...) existe apenas na apresentação — nunca persistimos
// as duas formas como campos independentes.
type Coordinate struct {
	Quadra int `json:"quadra"`
	Lado   int `json:"lado"`
	Fila   int `json:"fila"`
	Andar  int `json:"andar"`
}

// LadoLetter converte o índice numérico do lado para a forma alfabética
// de exibição (1 → A, 2 → B, ..., 27 → AA).
func LadoLetter(lado int) string {
	if lado <= 0 {
		return ""
	}
	var sb strings.Builder
	for lado > 0 {
		lado--
		sb.WriteByte(byte('A' + lado%26))
		lado /= 26
	}
	// Inverte os caracteres acumulados (escritos do menos significativo ao mais).
	runes := []rune(sb.String())
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// ParseLado aceita tanto a forma numérica ("2") quanto a alfabética ("B")
// e normaliza para o índice canônico interno.
func ParseLado(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("lado vazio")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("lado numérico inválido: %q", s)
		}
		return n, nil
	}
	n := 0
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("lado inválido: %q", s)
		}
		n = n*26 + int(r-'A') + 1
	}
	return n, nil
}

// Code deriva o código determinístico da localização a partir da coordenada.
// O código nunca é fonte de verdade independente: sempre pode ser regenerado.
func (c Coordinate) Code() string {
	return fmt.Sprintf("Q%d-L%s-F%d-A%d", c.Quadra, LadoLetter(c.Lado), c.Fila, c.Andar)
}

// ParseLocationCode faz o caminho inverso de Code, recuperando a coordenada.
func ParseLocationCode(code string) (Coordinate, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(code)), "-")
	if len(parts) != 4 {
		return Coordinate{}, fmt.Errorf("código de localização inválido: %q", code)
	}
	var c Coordinate
	var err error
	for i, prefix := range []string{"Q", "L", "F", "A"} {
		if !strings.HasPrefix(parts[i], prefix) || len(parts[i]) < 2 {
			return Coordinate{}, fmt.Errorf("código de localização inválido: %q", code)
		}
		raw := parts[i][1:]
		switch prefix {
		case "L":
			c.Lado, err = ParseLado(raw)
		case "Q":
			c.Quadra, err = strconv.Atoi(raw)
		case "F":
			c.Fila, err = strconv.Atoi(raw)
		case "A":
			c.Andar, err = strconv.Atoi(raw)
		}
		if err != nil {
			return Coordinate{}, fmt.Errorf("código de localização inválido: %q", code)
		}
	}
	if c.Quadra <= 0 || c.Lado <= 0 || c.Fila <= 0 || c.Andar <= 0 {
		return Coordinate{}, fmt.Errorf("código de localização inválido: %q", code)
	}
	return c, nil
}

// Location representa o menor slot endereçável de armazenamento dentro de uma câmara.
// Invariantes: CurrentWeightKg ≤ MaxCapacityKg sempre; Occupied é verdadeiro
// se e somente se exatamente um produto está vinculado — regra binária estrita,
// independente do peso utilizado.
type Location struct {
	ID              string     `json:"id"`
	ChamberID       string     `json:"chamber_id"`
	Coordinate      Coordinate `json:"coordinate"`
	Code            string     `json:"code"`
	Occupied        bool       `json:"occupied"`
	MaxCapacityKg   float64    `json:"max_capacity_kg"`
	CurrentWeightKg float64    `json:"current_weight_kg"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// GenerateCoordinates produz o produto cartesiano dos quatro eixos,
// na ordem quadra → lado → fila → andar.
func GenerateCoordinates(d ChamberDimensions) []Coordinate {
	coords := make([]Coordinate, 0, d.TotalLocations())
	for q := 1; q <= d.Quadras; q++ {
		for l := 1; l <= d.Lados; l++ {
			for f := 1; f <= d.Filas; f++ {
				for a := 1; a <= d.Andares; a++ {
					coords = append(coords, Coordinate{Quadra: q, Lado: l, Fila: f, Andar: a})
				}
			}
		}
	}
	return coords
}

// CapacityPolicy define a capacidade máxima (kg) atribuída a cada localização
// no provisionamento em massa. ByAndarKg permite sobrescrever por andar
// (andares baixos costumam suportar mais peso).
type CapacityPolicy struct {
	DefaultCapacityKg float64         `json:"default_capacity_kg"`
	ByAndarKg         map[int]float64 `json:"by_andar_kg,omitempty"`
}

// CapacityFor resolve a capacidade de uma coordenada segundo a política.
func (p CapacityPolicy) CapacityFor(c Coordinate) float64 {
	if cap, ok := p.ByAndarKg[c.Andar]; ok {
		return cap
	}
	return p.DefaultCapacityKg
}
