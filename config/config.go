package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultItemsSubDir      = "items"
	DefaultEnrollmentSubDir = "enrollment"
)

const (
	defaultTagQueueSize  = 200
	defaultNumTagWorkers = 2
	defaultCoverWidth    = 400
)

const (
	defaultMatchMaxDistance = 0.18
	defaultUpdateInterval   = 24 * time.Hour
	defaultSignedURLTTL     = 24 * time.Hour
)

type Config struct {
	// public base URL embedded in signed asset links
	BaseURL string

	// database path
	DatabasePath string

	// media storage configuration
	MediaStoragePath string // primary root for stored assets
	ItemsPath        string // full-calculated path for album items
	EnrollmentPath   string // full-calculated path for enrollment photos

	// cover generation settings
	CoverWidth int

	// tagging worker settings
	TagQueueSize  int
	NumTagWorkers int

	// face detection / recognition model paths (DNN)
	FaceDNNNetConfigPath string
	FaceDNNNetModelPath  string
	FaceRecModelPath     string
	FaceRecModelName     string

	// nearest-neighbour acceptance threshold (index-native distance)
	MatchMaxDistance float64

	// upstream roster source
	RosterURL          string
	RosterTokenURL     string
	RosterClientID     string
	RosterClientSecret string

	// vector index
	VectorIndexURL   string
	VectorIndexClass string

	// signed URL key pair
	SigningPrivateKeyPath string
	SigningPublicKeyPath  string
	SignedURLTTL          time.Duration

	// bearer-token validation
	AuthPublicKeyPath string
	AdminSubjects     []string

	// periodic reconciliation driver
	UpdateInterval time.Duration
	StopOnError    bool
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvDurationOrDefault(envVar string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %s. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBoolOrDefault(envVar string, defaultVal bool) bool {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %v. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvListOrDefault(envVar string, defaultVal []string) []string {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func LoadConfig() (Config, error) {
	baseURL := strings.TrimRight(getEnvOrDefault("BASE_URL", "http://localhost:8080"), "/")

	dbPath := getEnvOrDefault("DATABASE_PATH", "albums.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	itemsSubDir := getEnvOrDefault("ITEMS_SUBDIR", DefaultItemsSubDir)
	absItemsPath := filepath.Join(absMediaStorage, itemsSubDir)

	enrollmentSubDir := getEnvOrDefault("ENROLLMENT_SUBDIR", DefaultEnrollmentSubDir)
	absEnrollmentPath := filepath.Join(absMediaStorage, enrollmentSubDir)

	cfg := Config{
		BaseURL:          baseURL,
		DatabasePath:     dbPath,
		MediaStoragePath: absMediaStorage,
		ItemsPath:        absItemsPath,
		EnrollmentPath:   absEnrollmentPath,

		CoverWidth: getEnvIntOrDefault("COVER_WIDTH", defaultCoverWidth),

		TagQueueSize:  getEnvIntOrDefault("TAG_QUEUE_SIZE", defaultTagQueueSize),
		NumTagWorkers: getEnvIntOrDefault("NUM_TAG_WORKERS", defaultNumTagWorkers),

		FaceDNNNetConfigPath: getEnvOrDefault("FACE_DNN_CONFIG_PATH", "./models/deploy.prototxt.txt"),
		FaceDNNNetModelPath:  getEnvOrDefault("FACE_DNN_MODEL_PATH", "./models/res10_300x300_ssd_iter_140000_fp16.caffemodel"),
		FaceRecModelPath:     getEnvOrDefault("FACE_REC_MODEL_PATH", "./models/arcface.onnx"),
		FaceRecModelName:     getEnvOrDefault("FACE_REC_MODEL_NAME", "arcface"),

		MatchMaxDistance: getEnvFloatOrDefault("MATCH_MAX_DISTANCE", defaultMatchMaxDistance),

		RosterURL:          getEnvOrDefault("ROSTER_URL", ""),
		RosterTokenURL:     getEnvOrDefault("ROSTER_TOKEN_URL", ""),
		RosterClientID:     getEnvOrDefault("ROSTER_CLIENT_ID", ""),
		RosterClientSecret: getEnvOrDefault("ROSTER_CLIENT_SECRET", ""),

		VectorIndexURL:   getEnvOrDefault("VECTOR_INDEX_URL", "http://localhost:8081"),
		VectorIndexClass: getEnvOrDefault("VECTOR_INDEX_CLASS", "KnownFaces"),

		SigningPrivateKeyPath: getEnvOrDefault("SIGNING_PRIVATE_KEY_PATH", filepath.Join("data", "private.key")),
		SigningPublicKeyPath:  getEnvOrDefault("SIGNING_PUBLIC_KEY_PATH", filepath.Join("data", "public.key")),
		SignedURLTTL:          getEnvDurationOrDefault("SIGNED_URL_TTL", defaultSignedURLTTL),

		AuthPublicKeyPath: getEnvOrDefault("AUTH_PUBLIC_KEY_PATH", ""),
		AdminSubjects:     getEnvListOrDefault("ADMIN_SUBJECTS", nil),

		UpdateInterval: getEnvDurationOrDefault("UPDATE_INTERVAL", defaultUpdateInterval),
		StopOnError:    getEnvBoolOrDefault("RECONCILE_STOP_ON_ERROR", false),
	}

	return cfg, nil
}
