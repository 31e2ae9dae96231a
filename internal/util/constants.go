package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DatabaseMySQL    = "mysql"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// 题目媒体文件允许的类型
var AllowedMediaExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".mp3", ".mp4", ".pdf"}
