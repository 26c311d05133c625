package sessions

type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
	Next     *Cursor   `json:"next,omitempty"`
}

type LayoutUpdateResponse struct {
	Auditorium *Auditorium `json:"auditorium"`
	// Sessions whose seats were re-materialized from the new layout
	Reconciled int      `json:"reconciled"`
	Failed     []string `json:"failed,omitempty"`
}
