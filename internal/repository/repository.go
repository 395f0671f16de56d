package repository

import (
	"database/sql"
	"errors"

	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
)

// ErrVersionMismatch 表示带版本条件的写入没有命中任何行，
// 说明远端已经被其他会话修改过
var ErrVersionMismatch = errors.New("版本不一致，远端数据已被其他会话修改")

// ErrNotFound 表示目标行已经不存在（例如被其他会话删除）
var ErrNotFound = errors.New("目标数据不存在")

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}
