package constants

type ContextKey string

const (
	TxKey        ContextKey = "tx"
	PoolKey      ContextKey = "pool"
	LoggerKey    ContextKey = "logger"
	ParamsKey    ContextKey = "params"
	IdentityKey  ContextKey = "identity"
	RequestStart ContextKey = "request_start"
	RequestIDKey ContextKey = "request_id"
)
