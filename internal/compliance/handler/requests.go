package handler

import (
	"time"

	"tessera/internal/compliance/service"
	"tessera/pkg/domain"
)

type recordRequest struct {
	Address         string    `json:"address"`
	Whitelisted     bool      `json:"whitelisted"`
	KYCExpiry       time.Time `json:"kyc_expiry"`
	KYCDocumentHash string    `json:"kyc_document_hash"`
	Jurisdiction    string    `json:"jurisdiction"`
	MaxHolding      int64     `json:"max_holding"`
}

func (r recordRequest) toInput() (service.RecordInput, error) {
	addr, err := domain.ParseAddress(r.Address)
	if err != nil {
		return service.RecordInput{}, err
	}
	return service.RecordInput{
		Address:         addr,
		Whitelisted:     r.Whitelisted,
		KYCExpiry:       r.KYCExpiry,
		KYCDocumentHash: r.KYCDocumentHash,
		Jurisdiction:    r.Jurisdiction,
		MaxHolding:      domain.Shares(r.MaxHolding),
	}, nil
}

type blacklistRequest struct {
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason"`
}
