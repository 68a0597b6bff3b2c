package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sales channels for retail transactions.
const (
	ChannelStore  = "store"
	ChannelOnline = "online"
)

// RetailTransaction is a counter or online sale made by a branch.
type RetailTransaction struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"ownerId"`
	CustomerName string          `json:"customerName"`
	MobileNumber string          `json:"mobileNumber"`
	Channel      string          `json:"channel"`
	Items        []RetailItem    `json:"items"`
	Amount       decimal.Decimal `json:"amount"`
	Time         time.Time       `json:"time"`
}

// RetailItem is one product line of a retail transaction.
type RetailItem struct {
	ProductName string          `json:"productName"`
	Quantity    decimal.Decimal `json:"quantity"`
	Amount      decimal.Decimal `json:"pamount"`
}

// NormalizeChannel maps free-form channel input to a known channel.
func NormalizeChannel(channel string) string {
	if normalizeLabel(channel) == ChannelOnline {
		return ChannelOnline
	}
	return ChannelStore
}
