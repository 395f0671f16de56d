package domain

import "time"

type SkillRequirement struct {
	SkillID   int64 `json:"skillID"`
	MinLevel  int32 `json:"minLevel"`
	Count     int32 `json:"count"`
	Mandatory bool  `json:"mandatory"`
}

type Station struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	Line           string             `json:"line"`
	Capacity       *int32             `json:"capacity"` // 为 nil 时表示没有配置容量上限
	RequiredSkills []SkillRequirement `json:"requiredSkills"`
	Priority       int32              `json:"priority"`
	CreatedAt      time.Time          `json:"createdAt"`
	Version        int32              `json:"-"`
}
