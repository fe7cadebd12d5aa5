package config

import "time"

type App struct {
	Port                string        `env:"APP_PORT" default:"8080"`
	DatabaseURL         string        `env:"DATABASE_URL,required"`
	JWTSecret           string        `env:"JWT_SECRET,required"`
	JWTTTL              time.Duration `env:"JWT_TTL_HOURS" default:"24h"`
	Env                 string        `env:"APP_ENV" default:"dev"`
	ClientURL           string        `env:"CLIENT_URL" default:"http://localhost:5173"`
	FinePerDay          float64       `env:"FINE_PER_DAY" default:"1"`
	UploadDir           string        `env:"UPLOAD_DIR" default:"./uploads"`
	OverdueScanInterval time.Duration `env:"OVERDUE_SCAN_INTERVAL" default:"1h"`
}

func (a App) Production() bool { return a.Env == "production" }
