package constants

import "time"

const (
	CacheTTL       = 5 * time.Minute
	ClosedMonthTTL = 24 * time.Hour
	SessionIdleTTL = 30 * time.Minute
	MaxSessions    = 10000
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout     = 5 * time.Second
	MaintenanceInterval = 5 * time.Minute
)

const (
	DefaultAPIPrefix  = "/killstats/api"
	DefaultPageLength = 25
	MaxPageLength     = 100
)

const (
	WebsocketPingInterval = 5 * time.Second
	WebsocketWriteTimeout = time.Second
	WebsocketReadTimeout  = 60 * time.Second
)
