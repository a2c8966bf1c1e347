package model

import "time"

// ReservationKey identifies one row of the quota ledger. Day is always a UTC midnight.
type ReservationKey struct {
	RequesterId uint64    `json:"requester_id,string"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Day         time.Time `json:"day"`
}

type ReservationRecord struct {
	ReservationKey
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
