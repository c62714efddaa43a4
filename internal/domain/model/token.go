package model

import "time"

// Token is the canonical record produced by normalization. Address is the
// feed-assigned mint address and is unique within a snapshot.
type Token struct {
	Address            string    `json:"address"`
	Name               string    `json:"name"`
	Symbol             string    `json:"symbol"`
	Description        string    `json:"description,omitempty"`
	ImageURI           string    `json:"image_uri,omitempty"`
	MetadataURI        string    `json:"metadata_uri,omitempty"`
	Price              float64   `json:"price"`
	PriceUSD           float64   `json:"price_usd"`
	MarketCapUSD       float64   `json:"market_cap_usd"`
	GraduationProgress float64   `json:"graduation_progress"`
	CreatedAt          time.Time `json:"created_at"`
}

// Snapshot is a fully-formed batch of tokens plus its write time. Snapshots
// are replaced wholesale, never mutated in place.
type Snapshot struct {
	Tokens    []Token   `json:"tokens"`
	WrittenAt time.Time `json:"written_at"`
}

// TradeRecord is a raw trade row as returned by the feed, before
// normalization.
type TradeRecord struct {
	Price     float64       `json:"price"`
	PriceUSD  float64       `json:"priceUSD"`
	Currency  TradeCurrency `json:"currency"`
	BlockTime time.Time     `json:"blockTime"`
}

// TradeCurrency identifies the token side of a trade.
type TradeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	URI      string `json:"uri"`
}

// MetadataDoc is the off-chain metadata document for a token. All fields are
// optional; a zero MetadataDoc means resolution failed or returned nothing.
type MetadataDoc struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
}
