package model

import "time"

const (
    // DefaultEcoScore is assigned when neither a checklist nor a score is supplied.
    DefaultEcoScore = 80
    // MaxEcoScore and MinEcoScore bound every stored score.
    MaxEcoScore = 100
    MinEcoScore = 0

    ecoScoreBase    = 60
    ecoScorePerTick = 8
)

// Business is an eco-friendly venue listed in the directory.  It is
// immutable once registered.  This struct corresponds to a row in the
// `business` table.
//
// Fields:
//  ID          – store-assigned identity (UUID string).
//  Name        – display name, required.
//  Category    – directory category (e.g. "Cafés"), required.
//  Location    – neighbourhood or street, required.
//  Website     – optional URL.
//  Description – optional free text.
//  LogoURL     – optional image URL.
//  HeroImage   – optional image URL.
//  EcoChecks   – checklist answers, conventionally five entries.
//  EcoScore    – 0..100 rating.
//  CreatedAt   – registration time.
type Business struct {
    ID          string    `json:"id"`
    Name        string    `json:"name"`
    Category    string    `json:"category"`
    Location    string    `json:"location"`
    Website     *string   `json:"website"`
    Description *string   `json:"description"`
    LogoURL     *string   `json:"logo_url"`
    HeroImage   *string   `json:"hero_image"`
    EcoChecks   []bool    `json:"eco_checks"`
    EcoScore    int       `json:"eco_score"`
    CreatedAt   time.Time `json:"created_at"`
}

// EcoScore derives a score from a checklist: 60 plus 8 per satisfied item,
// clamped to the 0..100 range.
func EcoScore(checks []bool) int {
    n := 0
    for _, c := range checks {
        if c {
            n++
        }
    }
    return clampScore(ecoScoreBase + ecoScorePerTick*n)
}

func clampScore(s int) int {
    if s > MaxEcoScore {
        return MaxEcoScore
    }
    if s < MinEcoScore {
        return MinEcoScore
    }
    return s
}
