package models

import "time"

type AccessKey struct {
	Key         string     `json:"key"`
	GeneratedBy string     `json:"generatedBy"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	DailyLimit  *int64     `json:"dailyLimit,omitempty"`
	IsActive    bool       `json:"isActive"`
	UsageToday  int64      `json:"usageToday"`
	LastUsedOn  *string    `json:"lastUsedOn,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
