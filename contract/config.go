// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

// Upgrade is the activation envelope shared by precompile configs.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
	Disable        bool    `json:"disable,omitempty"`
}

// Timestamp returns the activation timestamp, nil when never activated.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// Equal returns true iff both upgrades activate and disable identically.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	if u.Disable != other.Disable {
		return false
	}
	if (u.BlockTimestamp == nil) != (other.BlockTimestamp == nil) {
		return false
	}
	return u.BlockTimestamp == nil || *u.BlockTimestamp == *other.BlockTimestamp
}

// Config is implemented by every precompile config in the family.
type Config interface {
	Key() string
	Timestamp() *uint64
	IsDisabled() bool
	Equal(Config) bool
	Verify() error
}
