package models

// Player is a registered casino user. The table is owned by the account
// service; this module only reads it to resolve display identities.
type Player struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"size:64;uniqueIndex" json:"username"`
	Fullname string `gorm:"size:128" json:"fullname"`
	Email    string `gorm:"size:128" json:"email"`
	Phone    string `gorm:"size:32" json:"phone"`
}

// TableName keeps the account service's table name.
func (Player) TableName() string { return "users" }

// Operator is a back-office account. Role decides the operator's tier in
// the support escalation chain.
type Operator struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username string `gorm:"size:64;uniqueIndex" json:"username"`
	Fullname string `gorm:"size:128" json:"fullname"`
	Email    string `gorm:"size:128" json:"email"`
	Phone    string `gorm:"size:32" json:"phone"`
	Role     string `gorm:"size:32;not null;index" json:"role"`
}

// TableName keeps the back-office table name.
func (Operator) TableName() string { return "admins" }
