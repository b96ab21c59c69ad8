package config

type Config interface {
	EnvConfig
	CorsConfig
	FocusmateConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetDataFolder() string
	GetDatabasePath() string
	GetLogLevel() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Focusmate
	Security
}

func New() Config {
	return mainConfig{}
}
