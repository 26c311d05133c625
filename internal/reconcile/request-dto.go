package reconcile

type RunRequest struct {
	DryRun    bool   `json:"dry_run"`
	BatchSize int    `json:"batch_size" binding:"omitempty,min=1,max=1000"`
	Limit     int    `json:"limit" binding:"omitempty,min=1"`
	TxPolicy  string `json:"tx_policy" binding:"omitempty,oneof=auto required"`
}
