// Command analyzer runs one portfolio analysis from a CSV price file and
// prints the result as JSON. It exists to exercise the engine end to end;
// production callers invoke the engine in-process.
//
// CSV rows: symbol,date,close[,market_cap] with dates as 2006-01-02.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/aristath/portfolio-engine/internal/config"
	"github.com/aristath/portfolio-engine/internal/domain"
	"github.com/aristath/portfolio-engine/internal/engine"
	"github.com/aristath/portfolio-engine/pkg/logger"
)

func main() {
	var (
		file      = flag.String("file", "prices.csv", "CSV file with symbol,date,close[,market_cap] rows")
		strategy  = flag.String("strategy", "risk_parity", "market_cap|risk_parity|momentum|min_variance|max_sharpe")
		benchSym  = flag.String("benchmark", "", "symbol in the CSV to treat as the benchmark")
		minWeight = flag.Float64("min-weight", 0, "minimum weight per asset")
		maxWeight = flag.Float64("max-weight", 1, "maximum weight per asset")
		lookback  = flag.Int("lookback", 0, "minimum lookback in observations")
		riskFree  = flag.Float64("risk-free", 0, "annual risk-free rate")
		pretty    = flag.Bool("pretty", false, "pretty console logging")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: *pretty})

	strategyType, ok := domain.ParseStrategy(*strategy)
	if !ok {
		log.Fatal().Str("strategy", *strategy).Msg("Unknown strategy")
	}

	snapshot, err := loadSnapshot(*file, *benchSym)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to load price data")
	}

	result, err := engine.New(cfg, log).Analyze(engine.Request{
		Snapshot: snapshot,
		Config: domain.StrategyConfig{
			Strategy: strategyType,
			Constraints: domain.Constraints{
				MinWeight:    *minWeight,
				MaxWeight:    *maxWeight,
				RiskFreeRate: *riskFree,
				LookbackDays: *lookback,
			},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
}

// loadSnapshot reads the CSV into per-symbol date-ordered price series.
func loadSnapshot(path, benchSym string) (domain.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	bySymbol := make(map[string][]domain.PricePoint)
	marketCaps := make(map[string]float64)
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return domain.Snapshot{}, err
		}
		line++
		if len(record) < 3 {
			return domain.Snapshot{}, fmt.Errorf("line %d: want symbol,date,close", line)
		}

		symbol := record[0]
		if line == 1 && symbol == "symbol" {
			continue // header
		}

		date, err := time.Parse("2006-01-02", record[1])
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("line %d: %w", line, err)
		}
		closePrice, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) >= 4 && record[3] != "" {
			capValue, err := strconv.ParseFloat(record[3], 64)
			if err != nil {
				return domain.Snapshot{}, fmt.Errorf("line %d: %w", line, err)
			}
			marketCaps[symbol] = capValue
		}

		bySymbol[symbol] = append(bySymbol[symbol], domain.PricePoint{Date: date, Close: closePrice})
	}

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	snapshot := domain.Snapshot{MarketCaps: marketCaps}
	for _, sym := range symbols {
		points := bySymbol[sym]
		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		series := domain.PriceSeries{Symbol: sym, Points: points}
		if sym == benchSym {
			snapshot.Benchmark = &series
			continue
		}
		snapshot.Series = append(snapshot.Series, series)
	}

	if len(snapshot.Series) == 0 {
		return domain.Snapshot{}, fmt.Errorf("no price series in %s", path)
	}
	return snapshot, nil
}
