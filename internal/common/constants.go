package common

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvListenAddr      = "LISTEN_ADDR"
	EnvModelPath       = "MODEL_PATH"
	EnvTargetColumn    = "TARGET_COLUMN"
	EnvSchemaMode      = "SCHEMA_MODE"
	EnvMaxUploadBytes  = "MAX_UPLOAD_BYTES"
	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
	EnvRateLimit       = "RATE_LIMIT"
	EnvRateBurst       = "RATE_BURST"
	EnvServerURL       = "CHURN_SERVER_URL"
)

// Configuration defaults
const (
	DefaultListenAddr      = ":8000"
	DefaultModelPath       = "models/churn"
	DefaultDatasetPath     = "fin_data.csv"
	DefaultTargetColumn    = "Target"
	DefaultSchemaMode      = SchemaModePassthrough
	DefaultLogLevel        = "info"
	DefaultLogFormat       = LogFormatConsole
	DefaultServerURL       = "http://localhost:8000"
	DefaultReadTimeoutSec  = 0 // no deadline on slow uploads
	DefaultWriteTimeoutSec = 0 // no deadline on long predictions
	DefaultShutdownSec     = 10
	DefaultRateBurst       = 10
)

// Schema enforcement modes
const (
	SchemaModePassthrough = "passthrough"
	SchemaModeStrict      = "strict"
)

// Log output formats
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Trainer defaults
const (
	DefaultTrainFraction      = 0.8
	DefaultValidationFraction = 0.2
	DefaultMissingThreshold   = 0.5
	DefaultSeed               = 42
	UnknownCategory           = "Unknown"
)

// IDColumn identifies a client record; it is part of the upload layout but not a feature.
const IDColumn = "ID"

// ExpectedColumns is the feature layout of the client export the model is trained on.
var ExpectedColumns = []string{
	"Тема вопроса",
	"Находится в реестре МСП",
	"Размер компании.Наименование",
	"Размер уставного капитала объявленный",
	"ОКВЭД2.Код",
	"ЕЛС действующий",
	"Грузоотправитель",
	"Грузополучатель",
	"Карточка клиента (внешний источник).Индекс платежной дисциплины Значение",
	"Карточка клиента (внешний источник).Индекс финансового риска Значение",
	"Госконтракты.Тип контракта",
	"Сценарий",
	"Ожидаемая выручка",
	"Вероятность сделки, %",
	"Канал первичного интереса",
	"Состояние",
	"Код груза",
}
