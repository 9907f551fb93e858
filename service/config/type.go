package config

type ModelParameters struct {
	BackbonePath string
	WeightsPath  string
	Device       string
	ImageSize    int
	Threshold    float64
}

type IService interface {
	GetRunTimeEnv() string
	GetLogLevel() string
	GetModeMaxShutdownTime() int
	GetDataFolder() string
	GetInboxFolder() string
	GetInboxPeriodicTimeout() int
	GetArchiveFolder() string
	GetDetectionsLogFile() string
	GetSampleInterval() int
	GetMaxUploadBytes() int64
	GetWatchMaxWorkers() int
	GetModelParameters() ModelParameters
	GetDatabaseURL() string
	GetRabbitMQURL() string
	GetRabbitMQQueue() string
	GetMinioParameters() MinioParameters
	GetWebhookURL() string
	GetMetricsPort() int
	GetOtelEndpoint() string
	GetLedgerUploader() string
}

type MinioParameters struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}
