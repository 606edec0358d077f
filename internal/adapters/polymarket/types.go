package polymarket

// DTOs raw de la Gamma API. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado tal como lo devuelve Gamma.
// outcomes, outcomePrices y clobTokenIds vienen como arrays JSON dentro de un string.
type gammaMarket struct {
	ConditionID         string `json:"conditionId"`
	Question            string `json:"question"`
	Slug                string `json:"slug"`
	Category            string `json:"category"`
	EndDateISO          string `json:"endDateIso"`
	EndDate             string `json:"endDate"`
	MarketMakerAddress  string `json:"marketMakerAddress"`
	Outcomes            string `json:"outcomes"`
	OutcomePrices       string `json:"outcomePrices"`
	ClobTokenIDs        string `json:"clobTokenIds"`
	UMAResolutionStatus string `json:"umaResolutionStatus"`
	Active              bool   `json:"active"`
	Closed              bool   `json:"closed"`
}
