package model

import "time"

// PointsPerVisit is the fixed eco point award for a single logged visit.
const PointsPerVisit = 10

// Visit records one check-in by a user at a business.  BusinessName,
// Category and Location are copied from the business when the visit is
// logged and are not kept in sync afterwards.  Visits are never updated
// or deleted.  This struct corresponds to a row in the `visit` table.
type Visit struct {
    ID           string    `json:"id"`            // visit.id
    UserID       string    `json:"user_id"`       // visit.user_id
    BusinessID   string    `json:"business_id"`   // visit.business_id
    BusinessName string    `json:"business_name"` // visit.business_name
    Category     string    `json:"category"`      // visit.category
    Location     string    `json:"location"`      // visit.location
    EcoPoints    int       `json:"eco_points"`    // visit.eco_points
    CreatedAt    time.Time `json:"created_at"`    // visit.created_at
}

// NewVisit snapshots the business fields into a visit for userID.
func NewVisit(userID string, b Business) Visit {
    return Visit{
        UserID:       userID,
        BusinessID:   b.ID,
        BusinessName: b.Name,
        Category:     b.Category,
        Location:     b.Location,
        EcoPoints:    PointsPerVisit,
    }
}
