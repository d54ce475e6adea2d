package handler

type distributeRequest struct {
	AmountCents int64 `json:"amount_cents"`
}
