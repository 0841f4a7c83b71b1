package providers

import (
	"antislack/internal/structures"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "127.0.0.1")
	v.SetDefault("webServer.port", 17420)
	v.SetDefault("storage.syncDriver", "sqlite")
	v.SetDefault("maintenance.interval", "1m")
	v.SetDefault("rules.blockPagePath", "/blocked")
	v.SetDefault("rules.maxRules", 5000)
	v.SetDefault("cache.size", 8)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("backup.type", "local")
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setConfigDefaults(v)

	v.BindEnv("logger.level", "ANTISLACK_LOG_LEVEL")
	v.BindEnv("storage.localPath", "ANTISLACK_LOCAL_PATH")
	v.BindEnv("storage.syncDriver", "ANTISLACK_SYNC_DRIVER")
	v.BindEnv("storage.syncDsn", "ANTISLACK_SYNC_DSN")
	v.BindEnv("metrics.enabled", "ANTISLACK_METRICS_ENABLED")
	v.BindEnv("backup.s3.accessKey", "ANTISLACK_S3_ACCESS_KEY")
	v.BindEnv("backup.s3.secretKey", "ANTISLACK_S3_SECRET_KEY")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	conf.Debug = flags.DebugMode
	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "AntiSlack"
	conf.Path = flags.ConfigPath

	return &conf, nil
}
