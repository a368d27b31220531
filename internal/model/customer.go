package model

// Customer is a tenant allowed to push and replay events.
type Customer struct {
	ID        int64  `db:"id"`
	CopyID    string `db:"copy_id"`
	Token     string `db:"token"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	Blocked   bool   `db:"blocked"`
	CreatedAt string `db:"created_at"` // UTC "2006-01-02 15:04:05"
}

// CustomerSummary is the admin listing view. It never carries the token.
type CustomerSummary struct {
	ID        int64  `db:"id"         json:"id"`
	CopyID    string `db:"copy_id"    json:"copy_id"`
	Name      string `db:"name"       json:"name"`
	Email     string `db:"email"      json:"email"`
	Blocked   bool   `db:"blocked"    json:"blocked"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Credentials is the pair handed out on registration, provisioning and reset.
type Credentials struct {
	CopyID string `json:"copy_id"`
	Token  string `json:"token"`
}
