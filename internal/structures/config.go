package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type StorageConfig struct {
	LocalPath  string `yaml:"localPath" mapstructure:"localPath" validate:"required|unixPath"`
	SyncDriver string `yaml:"syncDriver" mapstructure:"syncDriver" validate:"required|in:memory,sqlite,postgres,mysql"`
	SyncDsn    string `yaml:"syncDsn" mapstructure:"syncDsn"`
}

type MaintenanceConfig struct {
	Interval   time.Duration `yaml:"interval" validate:"required|min:1"`
	ArchiveDir string        `yaml:"archiveDir" mapstructure:"archiveDir"`
}

type RulesConfig struct {
	BlockPagePath string `yaml:"blockPagePath" mapstructure:"blockPagePath" validate:"required"`
	MaxRules      int    `yaml:"maxRules" mapstructure:"maxRules"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Size int `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey" mapstructure:"accessKey"`
	SecretKey string `yaml:"secretKey" mapstructure:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL" mapstructure:"useSSL"`
}

type BackupConfig struct {
	Type     string   `yaml:"type" validate:"in:local,s3"`
	LocalDir string   `yaml:"localDir" mapstructure:"localDir"`
	S3       S3Config `yaml:"s3"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server            `yaml:"webServer" mapstructure:"webServer"`
	Storage     StorageConfig     `yaml:"storage"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Rules       RulesConfig       `yaml:"rules"`
	Logger      LoggerConfig      `yaml:"logger"`
	Cache       CacheConfig       `yaml:"cache"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Backup      BackupConfig      `yaml:"backup"`
}
