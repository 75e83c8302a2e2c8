package constants

type contextKey string

const (
	LoggerKey contextKey = "logger"
	ParamsKey contextKey = "params"
)
