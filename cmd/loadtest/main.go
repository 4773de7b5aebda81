package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	methodPlaceOrder = "placeOrder"
	methodOrders     = "orders"
)

type loadMode string

const (
	modePlace     loadMode = "place"
	modePlaceList loadMode = "place-list"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	clientIDs   []int64
	lines       []orderLine
	outputPath  string
}

func parseConfig() (config, error) {
	var (
		cfg           config
		modeValue     string
		timeoutValue  string
		durationValue string
		clientsValue  string
		linesValue    string
	)

	flag.StringVar(&cfg.baseURL, "url", "http://localhost:8000", "webshop HTTP base URL")
	flag.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 1m, 10m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flag.StringVar(&timeoutValue, "timeout", "5s", "per-request timeout")
	flag.StringVar(&modeValue, "mode", string(modePlace), "load mode: place | place-list")
	flag.StringVar(&clientsValue, "clients", "1,2,3", "comma-separated client ids, used round-robin")
	flag.StringVar(&linesValue, "lines", "1:1", "comma-separated article_id:amount pairs for every order")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	if cfg.mode, err = parseMode(modeValue); err != nil {
		return cfg, err
	}
	if cfg.clientIDs, err = parseClientIDs(clientsValue); err != nil {
		return cfg, err
	}
	if cfg.lines, err = parseLines(linesValue); err != nil {
		return cfg, err
	}

	if strings.TrimSpace(cfg.baseURL) == "" {
		return cfg, errors.New("url is required")
	}
	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modePlace:
		return modePlace, nil
	case modePlaceList:
		return modePlaceList, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func parseClientIDs(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid client id: %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one client id is required")
	}
	return ids, nil
}

// parseLines разбирает "1:2,3:1" в позиции заказа. Количество может быть
// нулевым или отрицательным: витрина должна такие заказы отклонять.
func parseLines(value string) ([]orderLine, error) {
	var lines []orderLine
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		articleRaw, amountRaw, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid line %q: expected article_id:amount", part)
		}
		articleID, err := strconv.ParseInt(strings.TrimSpace(articleRaw), 10, 64)
		if err != nil || articleID <= 0 {
			return nil, fmt.Errorf("invalid article id in line %q", part)
		}
		amount, err := strconv.ParseInt(strings.TrimSpace(amountRaw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount in line %q", part)
		}
		lines = append(lines, orderLine{articleID: articleID, amount: amount})
	}
	if len(lines) == 0 {
		return nil, errors.New("at least one order line is required")
	}
	return lines, nil
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	client := newHTTPShopClient(cfg.baseURL, &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency,
			MaxIdleConnsPerHost: cfg.concurrency,
		},
	})

	result := run(client, cfg)

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// run прогоняет сценарии в cfg.concurrency воркерах и собирает отчёт.
func run(client shopClient, cfg config) report {
	startedAt := time.Now()
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				_ = runScenario(client, cfg, index, col)
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func runScenario(client shopClient, cfg config, index int, col *collector) error {
	scenarioStart := time.Now()
	scenarioOutcome := outcomeOK
	defer func() {
		col.record(scenarioMethod, time.Since(scenarioStart), scenarioOutcome)
	}()

	clientID := cfg.clientIDs[index%len(cfg.clientIDs)]
	outcome, err := timedCall(col, methodPlaceOrder, cfg.timeout, func(ctx context.Context) (string, error) {
		return client.PlaceOrder(ctx, clientID, cfg.lines)
	})
	if err != nil {
		scenarioOutcome = outcome
		return err
	}

	if cfg.mode == modePlaceList {
		outcome, err := timedCall(col, methodOrders, cfg.timeout, client.ListOrders)
		if err != nil {
			scenarioOutcome = outcome
			return err
		}
	}
	return nil
}

func timedCall(col *collector, method string, timeout time.Duration, call func(context.Context) (string, error)) (string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	outcome, err := call(ctx)
	col.record(method, time.Since(start), outcome)
	return outcome, err
}
