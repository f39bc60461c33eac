package httpserver

// SubmitOrderRequest is the JSON body for POST /orders.
type SubmitOrderRequest struct {
	Symbol  string `json:"symbol"`
	Side    string `json:"side"`  // "buy" | "sell"
	Type    string `json:"type"`  // "limit" | "market"
	Price   int64  `json:"price"` // ticks; ignored for market
	Qty     int64  `json:"qty"`
	OrderID uint64 `json:"orderId,omitempty"` // 0 = assigned by the gateway
	Owner   uint64 `json:"owner,omitempty"`
}

type SubmitOrderResponse struct {
	Status  string `json:"status"`
	OrderID uint64 `json:"orderId"`
}

// CancelOrderRequest is the JSON body for POST /orders/cancel.
type CancelOrderRequest struct {
	Symbol  string `json:"symbol"`
	OrderID uint64 `json:"orderId"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ReportMessage is the JSON shape pushed to WebSocket subscribers.
type ReportMessage struct {
	Type      string `json:"type"`
	Kind      string `json:"kind"`
	TradeID   uint64 `json:"tradeId,omitempty"`
	MakerID   uint64 `json:"makerId,omitempty"`
	TakerID   uint64 `json:"takerId,omitempty"`
	Symbol    string `json:"symbol"`
	Price     int64  `json:"price,omitempty"`
	Qty       int64  `json:"qty,omitempty"`
	ShardSeq  uint64 `json:"shardSeq"`
	Timestamp int64  `json:"timestamp"`
	Reason    string `json:"reason,omitempty"`
}

// WSSubscribeRequest is the client->server subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" | "unsubscribe"
	Channels []string `json:"channels"`
}
