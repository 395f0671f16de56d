package seed

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/utils"
)

// SkillNames 是演示数据使用的技能字典
var SkillNames = map[int64]string{
	1: "焊接",
	2: "装配",
	3: "质检",
	4: "叉车驾驶",
	5: "设备维护",
}

var defaultShifts = []domain.Shift{
	{Name: "早班", StartTime: "08:00:00", EndTime: "16:00:00"},
	{Name: "中班", StartTime: "16:00:00", EndTime: "23:30:00"},
}

func skillIDs() []int64 {
	ids := make([]int64, 0, len(SkillNames))
	for id := range SkillNames {
		ids = append(ids, id)
	}
	return ids
}

// SeedShifts 插入默认的两个班次
func SeedShifts(r *repository.Repository) []*domain.Shift {
	shifts := make([]*domain.Shift, 0, len(defaultShifts))
	for i := range defaultShifts {
		shift := defaultShifts[i]
		if err := r.CreateShift(&shift); err != nil {
			slog.Error("插入班次失败", "name", shift.Name, "error", err)
			continue
		}
		shifts = append(shifts, &shift)
	}
	return shifts
}

// SeedStations 插入 n 个带随机技能要求的工位
func SeedStations(r *repository.Repository, n int) []*domain.Station {
	ids := skillIDs()
	stations := make([]*domain.Station, 0, n)

	for i := 0; i < n; i++ {
		line := utils.GenerateRandomLine()
		station := &domain.Station{
			Name:     fmt.Sprintf("%s %02d号工位", line, i+1),
			Line:     line,
			Priority: int32(rand.Intn(10) + 1),
		}

		// 大部分工位有容量上限，留一部分没有配置的
		if rand.Intn(5) != 0 {
			capacity := int32(rand.Intn(3) + 1)
			station.Capacity = &capacity
		}

		reqCount := rand.Intn(3)
		rand.Shuffle(len(ids), func(a, b int) {
			ids[a], ids[b] = ids[b], ids[a]
		})
		for _, skillID := range ids[:reqCount] {
			station.RequiredSkills = append(station.RequiredSkills, domain.SkillRequirement{
				SkillID:   skillID,
				MinLevel:  int32(rand.Intn(3) + 1),
				Count:     1,
				Mandatory: rand.Intn(2) == 0,
			})
		}

		if err := r.CreateStation(station); err != nil {
			slog.Error("插入工位失败", "error", err)
			continue
		}
		stations = append(stations, station)
	}

	return stations
}

// SeedEmployees 插入 n 个随机员工
func SeedEmployees(r *repository.Repository, n int, shifts []*domain.Shift) []*domain.Employee {
	ids := skillIDs()
	employees := make([]*domain.Employee, 0, n)

	for i := 0; i < n; i++ {
		name := utils.GenerateRandomChineseName()
		employee := &domain.Employee{
			Name:         name,
			Code:         utils.GenerateEmployeeCodeFromChineseName(name),
			Active:       rand.Intn(10) != 0, // 少量员工处于停用状态
			ContractType: utils.GenerateRandomContractType(),
			Skills:       utils.GenerateRandomSkills(ids),
		}

		// 一部分员工申报可用时段，其余保持为空表示全时段可用
		if rand.Intn(2) == 0 && len(shifts) > 0 {
			for weekday := time.Monday; weekday <= time.Friday; weekday++ {
				for _, shift := range shifts {
					employee.Availability = append(employee.Availability, domain.AvailabilitySlot{
						Weekday:   weekday,
						ShiftID:   shift.ID,
						Available: rand.Intn(4) != 0,
					})
				}
			}
		}

		if err := r.CreateEmployee(employee); err != nil {
			slog.Error("插入员工失败", "name", name, "error", err)
			continue
		}
		employees = append(employees, employee)
	}

	return employees
}

// SeedDemands 为未来 days 天的每个工位和班次生成需求槽位
func SeedDemands(r *repository.Repository, stations []*domain.Station, shifts []*domain.Shift, days int) {
	for day := 0; day < days; day++ {
		date := time.Now().AddDate(0, 0, day).Format("2006-01-02")
		for _, station := range stations {
			for _, shift := range shifts {
				demand := &domain.Demand{
					ID:        domain.MakeDemandID(station.ID, shift.ID, date),
					StationID: station.ID,
					ShiftID:   shift.ID,
					Date:      date,
				}
				if err := r.CreateDemand(demand); err != nil {
					if errors.Is(err, sql.ErrNoRows) {
						// ON CONFLICT DO NOTHING 没有返回行，说明需求已经存在
						continue
					}
					slog.Error("插入需求失败", "demandID", demand.ID, "error", err)
				}
			}
		}
	}
}

// SeedRandomData 一次性生成完整的演示数据集
func SeedRandomData(r *repository.Repository, employeeCount int, stationCount int) {
	shifts := SeedShifts(r)
	stations := SeedStations(r, stationCount)
	employees := SeedEmployees(r, employeeCount, shifts)
	SeedDemands(r, stations, shifts, 7)

	// 给少量员工安排请假记录，方便演示缺勤校验
	for _, employee := range employees {
		if rand.Intn(10) != 0 {
			continue
		}
		absence := &domain.Absence{
			EmployeeID: employee.ID,
			Date:       time.Now().AddDate(0, 0, rand.Intn(7)).Format("2006-01-02"),
			Reason:     "事假",
		}
		if err := r.CreateAbsence(absence); err != nil {
			slog.Error("插入请假记录失败", "employeeID", employee.ID, "error", err)
		}
	}

	slog.Info("随机数据生成完成",
		"shifts", len(shifts),
		"stations", len(stations),
		"employees", len(employees),
	)
}
