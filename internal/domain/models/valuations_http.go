package models

// Requests for valuation HTTP endpoints. Defined in domain for consistency and reuse.

type FundCalculationsRequest struct {
	Fund  string `param:"fund" json:"fund" validate:"required"`
	Limit int    `query:"limit" json:"limit" default:"30" validate:"gte=1,lte=1000"`
}

type AssetPricesRequest struct {
	Asset string `param:"asset" json:"asset" validate:"required"`
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}

type InvestorValuationsRequest struct {
	Investor string `param:"investor" json:"investor" validate:"required"`
	Limit    int    `query:"limit" json:"limit" default:"30" validate:"gte=1,lte=1000"`
}

type NetworkHistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"30" validate:"gte=1,lte=1000"`
}
