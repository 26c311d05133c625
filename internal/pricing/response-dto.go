package pricing

type RuleListResponse struct {
	Rules []PriceRule `json:"rules"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}
