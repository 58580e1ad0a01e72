package models

// Requests for the inventory analysis HTTP endpoints. Defined in domain for
// consistency and reuse.

type AnalysisRequest struct {
	ProductID    string `param:"productId" json:"product_id" validate:"required"`
	VariantID    string `query:"variantId" json:"variant_id"`
	LeadTimeDays int    `query:"leadTimeDays" json:"lead_time_days" default:"7" validate:"gte=1,lte=90"`
	HorizonDays  int    `query:"horizonDays" json:"horizon_days" default:"30" validate:"gte=1,lte=365"`
	Persist      bool   `query:"persist" json:"persist"`
}

type AnalyzeAllRequest struct {
	StoreID string `query:"storeId" json:"store_id"`
	Persist bool   `query:"persist" json:"persist"`
}

type CriticalItemsRequest struct {
	StoreID string `query:"storeId" json:"store_id"`
	Limit   int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type RestockReportRequest struct {
	StoreID string `query:"storeId" json:"store_id"`
}

type SalesHistoryRequest struct {
	ProductID string `param:"productId" json:"product_id" validate:"required"`
	VariantID string `query:"variantId" json:"variant_id"`
	Days      int    `query:"days" json:"days" default:"90" validate:"gte=1,lte=365"`
}
