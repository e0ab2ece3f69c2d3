package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config agrupa toda la configuración del proceso (env vars).
type Config struct {
	Port           string `env:"PORT" envDefault:"3103"`
	FrontendOrigin string `env:"FRONTEND_ORIGIN" envDefault:"http://localhost:5173"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL"` // default: http://localhost:<PORT>

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	AppName   string `env:"APP_NAME" envDefault:"nutrition-call-assistant"`

	// Groq: análisis estructurado y recetas. Sin key no arrancamos.
	GroqAPIKey  string `env:"GROQ_API_KEY,required,notEmpty"`
	GroqBaseURL string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	GroqModel   string `env:"GROQ_MODEL" envDefault:"llama-3.3-70b-versatile"`

	// OpenAI: descripción de imágenes (visión).
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIVisionModel string `env:"OPENAI_VISION_MODEL" envDefault:"gpt-4o-mini"`

	TTSAPIKey  string `env:"TTS_API_KEY"`
	TTSBaseURL string `env:"TTS_BASE_URL" envDefault:"https://api.elevenlabs.io"`
	TTSVoiceID string `env:"TTS_VOICE_ID" envDefault:"21m00Tcm4TlvDq8ikWAM"`
	TTSModel   string `env:"TTS_MODEL" envDefault:"eleven_multilingual_v2"`

	ShortenerURL string `env:"SHORTENER_URL" envDefault:"http://tinyurl.com/api-create.php"`

	// Si está vacío, /webhook no verifica firma (modo dev).
	RetellAPIKey string `env:"RETELL_API_KEY"`

	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"60s"`

	DedupeWindow time.Duration `env:"DEDUPE_WINDOW" envDefault:"10s"`
	RedisAddr    string        `env:"REDIS_ADDR"`
	DBDSN        string        `env:"DB_DSN"`

	ImageStore  string `env:"IMAGE_STORE" envDefault:"local"` // local | s3
	UploadDir   string `env:"UPLOAD_DIR" envDefault:"public/uploads"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`

	StreamBuffer int `env:"STREAM_BUFFER" envDefault:"64"`

	AutoAnalyzeUploads  bool          `env:"AUTO_ANALYZE_UPLOADS" envDefault:"false"`
	AutoAnalyzeDebounce time.Duration `env:"AUTO_ANALYZE_DEBOUNCE" envDefault:"2s"`

	// Valores de relleno para campos que la llamada no aportó.
	// Son placeholders de demo, no reglas de negocio.
	DefaultUserAge    string `env:"DEFAULT_USER_AGE" envDefault:"30"`
	DefaultUserWeight string `env:"DEFAULT_USER_WEIGHT" envDefault:"170"`
	DefaultUserHeight string `env:"DEFAULT_USER_HEIGHT" envDefault:"5'10"`
	DefaultUserName   string `env:"DEFAULT_USER_NAME" envDefault:"Guest"`
	DefaultUserGender string `env:"DEFAULT_USER_GENDER" envDefault:"unspecified"`
}

// Load lee .env (si existe) y luego parsea el entorno.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	// godotenv no pisa variables ya definidas; un .env ausente no es error.
	_ = godotenv.Load(dotenvFiles...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.Port = strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:" + c.Port
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")

	switch c.ImageStore {
	case "local", "":
		c.ImageStore = "local"
	case "s3":
		if strings.TrimSpace(c.S3Bucket) == "" {
			return errors.New("S3_BUCKET is required when IMAGE_STORE=s3")
		}
	default:
		return fmt.Errorf("unknown IMAGE_STORE %q", c.ImageStore)
	}

	if c.DedupeWindow <= 0 {
		return errors.New("DEDUPE_WINDOW must be positive")
	}
	if c.StreamBuffer <= 0 {
		c.StreamBuffer = 64
	}
	return nil
}

func (c Config) Addr() string { return ":" + c.Port }
