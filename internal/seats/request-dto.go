package seats

type AvailabilityQuery struct {
	Type  string `form:"type" binding:"omitempty,oneof=STANDARD VIP WHEELCHAIR PREMIUM"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

type AdminReleaseRequest struct {
	ExpectedVersion *int64 `json:"expected_version" binding:"omitempty,min=1"`
}
