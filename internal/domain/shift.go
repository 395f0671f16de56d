package domain

import "time"

type Shift struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartTime string    `json:"startTime"` // 格式为 15:04:05
	EndTime   string    `json:"endTime"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}

// WorkDuration 计算班次的工作时长（小时）。时间格式非法时返回 0
func (s *Shift) WorkDuration() float64 {
	startTime, err := time.Parse("15:04:05", s.StartTime)
	if err != nil {
		return 0
	}
	endTime, err := time.Parse("15:04:05", s.EndTime)
	if err != nil {
		return 0
	}

	d := endTime.Sub(startTime)
	if d < 0 {
		// 结束时间小于开始时间说明是跨夜班次
		d += 24 * time.Hour
	}
	return d.Hours()
}
