package models

import (
	"fmt"
	"time"
)

// EntityClass names a family of cached records sharing one freshness entry.
type EntityClass string

const (
	ClassAccount      EntityClass = "ACCOUNT"
	ClassTransactions EntityClass = "TRANSACTIONS"
	ClassCards        EntityClass = "CARDS"
)

// AllClasses lists every entity class in refresh order.
var AllClasses = []EntityClass{ClassAccount, ClassTransactions, ClassCards}

func ParseEntityClass(s string) (EntityClass, error) {
	for _, c := range AllClasses {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown entity class %q", s)
}

// SyncStatus tracks whether a local record matches the server.
type SyncStatus string

const (
	SyncSynced  SyncStatus = "SYNCED"
	SyncPending SyncStatus = "PENDING"
	SyncFailed  SyncStatus = "FAILED"
)

// CacheRecord is the freshness ledger entry of one entity class.
type CacheRecord struct {
	Class         EntityClass
	LastFetchTime time.Time
	ExpiryTime    time.Time
	IsExpired     bool
	RecordCount   int
}

// ClassStatus summarizes one class for the cache status report.
type ClassStatus struct {
	Class       EntityClass
	Cached      bool
	Valid       bool
	RecordCount int
	LastUpdate  time.Time
}

// CacheStatus is the cache status report across all classes.
type CacheStatus struct {
	Classes []ClassStatus
}

func (s CacheStatus) HasAnyCache() bool {
	for _, c := range s.Classes {
		if c.Cached {
			return true
		}
	}
	return false
}

func (s CacheStatus) IsFullyCached() bool {
	if len(s.Classes) == 0 {
		return false
	}
	for _, c := range s.Classes {
		if !c.Cached {
			return false
		}
	}
	return true
}
