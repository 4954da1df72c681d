package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 全部实体共用的主键与时间戳，软删除保留历史数据
type BaseModel struct {
	ID        int64          `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
