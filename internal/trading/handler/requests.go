package handler

type tradeRequest struct {
	Shares int64 `json:"shares"`
}
