package rdb

import (
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"time"

	"community_chat/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Now 统一时间：UTC + 毫秒精度，保证客户端拿到的毫秒游标是精确值
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Open 打开数据库。driver 取 mysql（线上）或 sqlite（本地/测试）
func Open(driver, dsn string, maxOpenConns int) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// 唯一约束冲突翻译成 gorm.ErrDuplicatedKey，不再匹配错误字符串
		TranslateError: true,
		NowFunc:        Now,
		Logger: logger.New(stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// 内存库每个连接是独立的库，只保留一个连接
		sqlDB.SetMaxOpenConns(1)
	} else if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return db, nil
}

// sqliteDSN sqlite 默认不检查外键，按连接打开
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// AutoMigrate 自动建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Community{},
		&model.CommunityMember{},
		&model.ChatMessage{},
	)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

var (
	// ErrDuplicate 唯一索引冲突
	ErrDuplicate = errors.New("duplicate key")
	// ErrMissingParent 外键冲突：引用的社区已不存在
	ErrMissingParent = errors.New("referenced row does not exist")
)

func translate(err error) error {
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", ErrMissingParent, err)
	}
	return err
}
