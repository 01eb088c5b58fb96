package domain

// UpdateAction is the decision the stop engine took for one position.
type UpdateAction string

const (
	ActionMoveStopUp   UpdateAction = "MOVE_STOP_UP"
	ActionCloseStopHit UpdateAction = "CLOSE_STOP_HIT"
	ActionNone         UpdateAction = "NO_ACTION"
)

// PositionUpdate is the per-position decision record produced by one
// evaluation cycle. It is an intermediate artifact: the apply step and the
// report renderer consume it, but it is never persisted on its own.
type PositionUpdate struct {
	Ticker        string         `json:"ticker"`
	Status        PositionStatus `json:"status"`
	Last          float64        `json:"last"`
	Entry         float64        `json:"entry"`
	StopOld       float64        `json:"stop_old"`
	StopSuggested float64        `json:"stop_suggested"`
	Shares        int            `json:"shares"`
	RNow          float64        `json:"r_now"`
	Action        UpdateAction   `json:"action"`
	Reason        string         `json:"reason"`
}
