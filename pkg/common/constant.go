package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyRoomwatchDBType string = "ROOMWATCH_DB_TYPE"
	EnvKeyRoomwatchDbPath string = "ROOMWATCH_DB_PATH"
	EnvKeyRoomwatchDbDSN  string = "ROOMWATCH_DB_DSN"

	EnvKeyRoomwatchHttpHostPort string = "ROOMWATCH_HTTP_HOST_PORT"
	EnvKeyRoomwatchGrpcHostPort string = "ROOMWATCH_GRPC_HOST_PORT"

	EnvKeyRoomwatchDefaultRate  string = "ROOMWATCH_DEFAULT_RATE"
	EnvKeyRoomwatchDefaultBurst string = "ROOMWATCH_DEFAULT_BURST"

	EnvKeyRoomwatchJWTSecret   string = "ROOMWATCH_JWT_SECRET"
	EnvKeyRoomwatchSessionTTL  string = "ROOMWATCH_SESSION_TTL"
	EnvKeyRoomwatchSuppressDup string = "ROOMWATCH_SUPPRESS_DUPLICATE_ALERTS"

	EnvKeyRoomwatchRedisURL     string = "ROOMWATCH_REDIS_URL"
	EnvKeyRoomwatchKafkaBrokers string = "ROOMWATCH_KAFKA_BROKERS"
	EnvKeyRoomwatchKafkaTopic   string = "ROOMWATCH_KAFKA_TOPIC"

	EnvKeyRoomwatchMQTTBrokerURL string = "ROOMWATCH_MQTT_BROKER_URL"
	EnvKeyRoomwatchMQTTClientID  string = "ROOMWATCH_MQTT_CLIENT_ID"
	EnvKeyRoomwatchMQTTEmbedded  string = "ROOMWATCH_MQTT_EMBEDDED"
	EnvKeyRoomwatchMQTTListen    string = "ROOMWATCH_MQTT_LISTEN"

	EnvKeyRoomwatchSensorSource string = "ROOMWATCH_SENSOR_SOURCE"

	EnvKeyRoomwatchLogDir        string = "ROOMWATCH_LOG_DIR"
	EnvKeyRoomwatchLogMaxSizeMB  string = "ROOMWATCH_LOG_MAX_SIZE_MB"
	EnvKeyRoomwatchLogMaxBackups string = "ROOMWATCH_LOG_MAX_BACKUPS"

	LoggerNameRoomwatchCore  string = "roomwatch_core"
	LoggerNameRestfulServer  string = "restful_server"
	LoggerNameGrpcServer     string = "grpc_server"
	LoggerNameFeed           string = "feed"
	LoggerNamePush           string = "push"
	LoggerNameIngest         string = "ingest"
	LoggerNameReconciler     string = "reconciler"
	LoggerFieldCategory      string = "category"
	LoggerCategoryRoom       string = "room"
	LoggerCategoryReading    string = "reading"
	LoggerCategoryAlert      string = "alert"
	LoggerCategoryThresholds string = "thresholds"
	LoggerCategoryProfile    string = "profile"
	LoggerCategorySync       string = "sync"
)
