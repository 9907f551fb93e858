package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type settings struct {
	RunTimeEnv          string `env:"RUN_TIME_ENV"           envDefault:"dev"`
	LogLevel            string `env:"LOG_LEVEL"              envDefault:"info"`
	ModeMaxShutdownTime int    `env:"MODE_MAX_SHUTDOWN_TIME" envDefault:"5"`

	DataFolder           string `env:"DATA_FOLDER"            envDefault:"./data"`
	InboxFolder          string `env:"INBOX_FOLDER"           envDefault:"./uploads"`
	InboxPeriodicTimeout int    `env:"INBOX_PERIODIC_TIMEOUT" envDefault:"5"`
	DetectionsLog        string `env:"DETECTIONS_LOG"         envDefault:"detections.log"`
	MaxUploadMB          int64  `env:"MAX_UPLOAD_MB"          envDefault:"500"`
	WatchMaxWorkers      int    `env:"WATCH_MAX_WORKERS"      envDefault:"1"`

	BackbonePath   string  `env:"MODEL_BACKBONE_PATH" envDefault:"./models/efficientnet_b0_binary.onnx"`
	WeightsPath    string  `env:"MODEL_WEIGHTS_PATH"`
	Device         string  `env:"MODEL_DEVICE"        envDefault:"auto"`
	SampleInterval int     `env:"SAMPLE_INTERVAL"     envDefault:"8"`
	ImageSize      int     `env:"IMAGE_SIZE"          envDefault:"224"`
	Threshold      float64 `env:"FAKE_THRESHOLD"      envDefault:"0.5"`

	DatabaseURL   string `env:"DATABASE_URL"`
	RabbitMQURL   string `env:"RABBITMQ_URL"`
	RabbitMQQueue string `env:"RABBITMQ_QUEUE" envDefault:"video.screening"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`
	MinioBucket    string `env:"MINIO_BUCKET"     envDefault:"screened-videos"`

	WebhookURL     string `env:"WEBHOOK_URL"`
	MetricsPort    int    `env:"METRICS_PORT"    envDefault:"9090"`
	OtelEndpoint   string `env:"OTEL_ENDPOINT"`
	LedgerUploader string `env:"LEDGER_UPLOADER" envDefault:"local"`
}

type envService struct {
	s settings
}

// NewEnv reads the configuration from the process environment.
// Values that would make the detection pipeline meaningless are rejected here
// so that bad settings surface at startup rather than per video.
func NewEnv() (IService, error) {
	s := settings{}
	if err := env.Parse(&s); err != nil {
		return nil, err
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	return &envService{s: s}, nil
}

func (s settings) validate() error {
	if s.SampleInterval < 1 {
		return fmt.Errorf("SAMPLE_INTERVAL must be >= 1, got %d", s.SampleInterval)
	}
	if s.ImageSize < 1 {
		return fmt.Errorf("IMAGE_SIZE must be >= 1, got %d", s.ImageSize)
	}
	if s.Threshold < 0 || s.Threshold > 1 {
		return fmt.Errorf("FAKE_THRESHOLD must be within [0,1], got %f", s.Threshold)
	}
	if s.WatchMaxWorkers < 1 {
		return fmt.Errorf("WATCH_MAX_WORKERS must be >= 1, got %d", s.WatchMaxWorkers)
	}
	if s.MaxUploadMB < 1 {
		return fmt.Errorf("MAX_UPLOAD_MB must be >= 1, got %d", s.MaxUploadMB)
	}
	switch s.Device {
	case "auto", "cpu", "cuda", "opencl":
	default:
		return fmt.Errorf("MODEL_DEVICE must be one of auto|cpu|cuda|opencl, got %q", s.Device)
	}
	return nil
}

func (svc *envService) GetRunTimeEnv() string {
	return svc.s.RunTimeEnv
}

func (svc *envService) GetLogLevel() string {
	return svc.s.LogLevel
}

func (svc *envService) GetModeMaxShutdownTime() int {
	return svc.s.ModeMaxShutdownTime
}

func (svc *envService) GetDataFolder() string {
	return svc.s.DataFolder
}

func (svc *envService) GetInboxFolder() string {
	return svc.s.InboxFolder
}

func (svc *envService) GetInboxPeriodicTimeout() int {
	return svc.s.InboxPeriodicTimeout
}

func (svc *envService) GetArchiveFolder() string {
	return filepath.Join(svc.s.DataFolder, "archive")
}

func (svc *envService) GetDetectionsLogFile() string {
	return svc.s.DetectionsLog
}

func (svc *envService) GetSampleInterval() int {
	return svc.s.SampleInterval
}

func (svc *envService) GetMaxUploadBytes() int64 {
	return svc.s.MaxUploadMB * 1024 * 1024
}

func (svc *envService) GetWatchMaxWorkers() int {
	return svc.s.WatchMaxWorkers
}

func (svc *envService) GetModelParameters() ModelParameters {
	return ModelParameters{
		BackbonePath: svc.s.BackbonePath,
		WeightsPath:  svc.s.WeightsPath,
		Device:       svc.s.Device,
		ImageSize:    svc.s.ImageSize,
		Threshold:    svc.s.Threshold,
	}
}

func (svc *envService) GetDatabaseURL() string {
	return svc.s.DatabaseURL
}

func (svc *envService) GetRabbitMQURL() string {
	return svc.s.RabbitMQURL
}

func (svc *envService) GetRabbitMQQueue() string {
	return svc.s.RabbitMQQueue
}

func (svc *envService) GetMinioParameters() MinioParameters {
	return MinioParameters{
		Endpoint:  svc.s.MinioEndpoint,
		AccessKey: svc.s.MinioAccessKey,
		SecretKey: svc.s.MinioSecretKey,
		UseSSL:    svc.s.MinioUseSSL,
		Bucket:    svc.s.MinioBucket,
	}
}

func (svc *envService) GetWebhookURL() string {
	return svc.s.WebhookURL
}

func (svc *envService) GetMetricsPort() int {
	return svc.s.MetricsPort
}

func (svc *envService) GetOtelEndpoint() string {
	return svc.s.OtelEndpoint
}

func (svc *envService) GetLedgerUploader() string {
	return svc.s.LedgerUploader
}
