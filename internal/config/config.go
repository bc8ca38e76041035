package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults holds the engine-wide numeric defaults. Every threshold is
// passed down to the services explicitly; nothing here is mutated after
// Load returns.
type Defaults struct {
	// ClipBound bounds the magnitude of a single periodic return during
	// cleaning; out-of-band returns are replaced with the boundary.
	ClipBound float64
	// MaxFillGap is the largest run of missing trading days that may be
	// forward-filled before the series is rejected.
	MaxFillGap int
	// MinObservations is the floor for any statistic.
	MinObservations int
	// WeightTolerance bounds the allowed deviation of a weight sum from 1.
	WeightTolerance float64
	// TradingDaysPerYear is the annualization base for daily data.
	TradingDaysPerYear int
	// RiskFreeRate is the annual risk-free rate used when the strategy
	// configuration does not supply one.
	RiskFreeRate float64
	// IRRMaxIterations caps the IRR root-finder.
	IRRMaxIterations int
	// IRRTolerance is the NPV convergence threshold for the root-finder.
	IRRTolerance float64
	// OptimizerMaxIterations caps the constrained-solver active-set loop.
	OptimizerMaxIterations int
	// RidgeEpsilon is the initial diagonal shrinkage applied to a
	// covariance matrix that fails its positive-definiteness check.
	RidgeEpsilon float64
	// LogLevel configures the CLI logger.
	LogLevel string
}

// Load reads engine defaults from environment variables, consulting a
// .env file when present.
func Load() (*Defaults, error) {
	_ = godotenv.Load()

	cfg := &Defaults{
		ClipBound:              getEnvAsFloat("ENGINE_CLIP_BOUND", 0.5),
		MaxFillGap:             getEnvAsInt("ENGINE_MAX_FILL_GAP", 3),
		MinObservations:        getEnvAsInt("ENGINE_MIN_OBSERVATIONS", 2),
		WeightTolerance:        getEnvAsFloat("ENGINE_WEIGHT_TOLERANCE", 1e-6),
		TradingDaysPerYear:     getEnvAsInt("ENGINE_TRADING_DAYS", 252),
		RiskFreeRate:           getEnvAsFloat("ENGINE_RISK_FREE_RATE", 0.0),
		IRRMaxIterations:       getEnvAsInt("ENGINE_IRR_MAX_ITERATIONS", 200),
		IRRTolerance:           getEnvAsFloat("ENGINE_IRR_TOLERANCE", 1e-9),
		OptimizerMaxIterations: getEnvAsInt("ENGINE_OPTIMIZER_MAX_ITERATIONS", 500),
		RidgeEpsilon:           getEnvAsFloat("ENGINE_RIDGE_EPSILON", 1e-8),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the defaults are internally consistent.
func (c *Defaults) Validate() error {
	if c.ClipBound <= 0 {
		return fmt.Errorf("ENGINE_CLIP_BOUND must be positive, got %f", c.ClipBound)
	}
	if c.MaxFillGap < 0 {
		return fmt.Errorf("ENGINE_MAX_FILL_GAP must be >= 0, got %d", c.MaxFillGap)
	}
	if c.MinObservations < 2 {
		return fmt.Errorf("ENGINE_MIN_OBSERVATIONS must be >= 2, got %d", c.MinObservations)
	}
	if c.WeightTolerance <= 0 {
		return fmt.Errorf("ENGINE_WEIGHT_TOLERANCE must be positive, got %g", c.WeightTolerance)
	}
	if c.TradingDaysPerYear <= 0 {
		return fmt.Errorf("ENGINE_TRADING_DAYS must be positive, got %d", c.TradingDaysPerYear)
	}
	if c.IRRMaxIterations <= 0 || c.OptimizerMaxIterations <= 0 {
		return fmt.Errorf("iteration caps must be positive")
	}
	return nil
}

// Default returns the built-in defaults without touching the environment.
func Default() *Defaults {
	return &Defaults{
		ClipBound:              0.5,
		MaxFillGap:             3,
		MinObservations:        2,
		WeightTolerance:        1e-6,
		TradingDaysPerYear:     252,
		RiskFreeRate:           0.0,
		IRRMaxIterations:       200,
		IRRTolerance:           1e-9,
		OptimizerMaxIterations: 500,
		RidgeEpsilon:           1e-8,
		LogLevel:               "info",
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
