package domain

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
// @Description Estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Code     int    `json:"code" example:"409"`
	Category string `json:"category" example:"CAPACITY_EXCEEDED"`
	Message  string `json:"message" example:"A localização Q1-LA-F1-A1 não suporta 50.0 kg."`
}
