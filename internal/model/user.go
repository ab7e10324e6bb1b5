package model

// User mirrors the `user` table.  Visits and impact records reference users
// only by an externally supplied user_id; nothing enforces that a User row
// exists.  The table is kept so the collection set matches what clients and
// the schema endpoint expect.
type User struct {
    ID        string  `json:"id"`         // user.id
    Username  string  `json:"username"`   // user.username
    AvatarURL *string `json:"avatar_url"` // user.avatar_url (nullable)
}

// Collections lists the persisted collections in wire order.
var Collections = []string{"user", "business", "visit", "impact"}
