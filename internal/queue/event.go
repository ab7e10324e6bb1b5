// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/iliyamo/terra-tranquil-api/internal/model"
)

// VisitLoggedQueue is the durable queue carrying VisitLoggedEvent messages.
const VisitLoggedQueue = "visit.logged"

// VisitLoggedEvent is published after a visit has been recorded and the
// user's impact refreshed.  It carries enough for downstream consumers to
// log, notify, or trigger analytics without querying the primary store.
type VisitLoggedEvent struct {
    VisitID      string `json:"visit_id"`
    UserID       string `json:"user_id"`
    Username     string `json:"username"`
    BusinessID   string `json:"business_id"`
    BusinessName string `json:"business_name"`
    Category     string `json:"category"`
    EcoPoints    int    `json:"eco_points"`
    TotalVisits  int    `json:"total_visits"`
    TotalPoints  int    `json:"total_points"`
    TerraLevel   int    `json:"terra_level"`
    LoggedAt     string `json:"logged_at"`
}

// NewVisitLoggedEvent builds the event for a stored visit and the impact
// snapshot that followed it.
func NewVisitLoggedEvent(v model.Visit, imp model.Impact) VisitLoggedEvent {
    return VisitLoggedEvent{
        VisitID:      v.ID,
        UserID:       v.UserID,
        Username:     imp.Username,
        BusinessID:   v.BusinessID,
        BusinessName: v.BusinessName,
        Category:     v.Category,
        EcoPoints:    v.EcoPoints,
        TotalVisits:  imp.Visits,
        TotalPoints:  imp.EcoPoints,
        TerraLevel:   imp.TerraLevel,
        LoggedAt:     v.CreatedAt.UTC().Format(time.RFC3339Nano),
    }
}
