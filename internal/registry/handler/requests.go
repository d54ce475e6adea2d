package handler

import (
	"tessera/internal/registry/service"
	"tessera/pkg/domain"
)

type registerRequest struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	Location       string `json:"location"`
	ValuationCents int64  `json:"valuation_cents"`
	DocumentHash   string `json:"document_hash"`
	RegistryNumber string `json:"registry_number"`
	Custodian      string `json:"custodian"`
}

func (r registerRequest) toInput() (service.RegisterInput, error) {
	custodian, err := domain.ParseAddress(r.Custodian)
	if err != nil {
		return service.RegisterInput{}, err
	}
	return service.RegisterInput{
		Name:           r.Name,
		Category:       r.Category,
		Location:       r.Location,
		Valuation:      domain.USDFromCents(r.ValuationCents),
		DocumentHash:   r.DocumentHash,
		RegistryNumber: r.RegistryNumber,
		Custodian:      custodian,
	}, nil
}

type tokenizeRequest struct {
	TotalShares int64 `json:"total_shares"`
}

type revalueRequest struct {
	ValuationCents int64 `json:"valuation_cents"`
}

type custodianRequest struct {
	Custodian string `json:"custodian"`
}
