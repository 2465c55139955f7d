package entity

import (
	coreEntity "meetbook/core/entity"
)

// User is a host account. Guests never have accounts; they book through the
// public pages.
type User struct {
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	DisplayName  string `db:"display_name" json:"display_name"`
	// Timezone is the IANA zone availability is computed in.
	Timezone string `db:"timezone" json:"timezone"`
	coreEntity.BaseEntity
}
