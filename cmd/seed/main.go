package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var days int

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机员工, 2: 插入随机工位, 3: 插入默认班次, 4: 插入需求槽位, 5: 生成完整演示数据)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.IntVar(&days, "days", 7, "生成需求槽位覆盖的天数")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的员工数量")
		} else {
			shifts, err := repo.GetAllShifts()
			if err != nil {
				slog.Error("无法读取班次列表", "error", err)
				return
			}
			seed.SeedEmployees(repo, n, shifts)
		}
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的工位数量")
		} else {
			seed.SeedStations(repo, n)
		}
	case 3:
		seed.SeedShifts(repo)
	case 4:
		stations, err := repo.GetAllStations()
		if err != nil {
			slog.Error("无法读取工位列表", "error", err)
			return
		}
		shifts, err := repo.GetAllShifts()
		if err != nil {
			slog.Error("无法读取班次列表", "error", err)
			return
		}
		seed.SeedDemands(repo, stations, shifts, days)
	case 5:
		seed.SeedRandomData(repo, cfg.Seed.EmployeeCount, cfg.Seed.StationCount)
	default:
		slog.Error("未知操作", "op", op)
	}
}
