package model

import "time"

// DefaultUsername is used when an impact record is initialised without one.
const DefaultUsername = "Guest"

// Impact holds the running totals for one user.  There is exactly one
// record per UserID.  Username is set on insert and never overwritten.
// TerraLevel is always DeriveLevel(Visits) once a visit log completes.
// This struct corresponds to a row in the `impact` table.
type Impact struct {
    ID              string    `json:"id"`
    UserID          string    `json:"user_id"`
    Username        string    `json:"username"`
    Visits          int       `json:"visits"`
    EcoPoints       int       `json:"eco_points"`
    CommunityImpact int       `json:"community_impact"`
    TerraLevel      int       `json:"terra_level"`
    CreatedAt       time.Time `json:"created_at"`
    UpdatedAt       time.Time `json:"updated_at"`
}

// Level thresholds on the visit count.
const (
    levelOneVisits   = 3
    levelTwoVisits   = 10
    levelThreeVisits = 20
)

// DeriveLevel maps a visit count to a terra level between 0 and 3.  It is
// monotonic and treats negative counts as zero.
func DeriveLevel(visits int) int {
    switch {
    case visits >= levelThreeVisits:
        return 3
    case visits >= levelTwoVisits:
        return 2
    case visits >= levelOneVisits:
        return 1
    default:
        return 0
    }
}
