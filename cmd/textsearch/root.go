package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/processor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/jsonwriter"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/tracing"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/workqueue"
)

const (
	defaultCountsPath  = "counts.json"
	defaultIndexPath   = "index.json"
	defaultResultsPath = "results.json"
)

type options struct {
	text        string
	counts      string
	index       string
	query       string
	results     string
	threads     string
	partial     bool
	configPath  string
	metricsPort int
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "textsearch",
		Short: "Build an inverted index over text files and answer queries",
		Long: `textsearch indexes the stems of every .txt/.text file under --text,
optionally writes word counts and the inverted index as JSON, and answers
one query per line of --query, writing ranked results as JSON.

Output flags take an optional path; given bare they write to the default
file name. --threads enables the worker pool; pass a size as --threads=N.

Examples:
  textsearch --text corpus/ --counts --index
  textsearch --text corpus/ --query queries.txt --results --partial
  textsearch --text corpus/ --query queries.txt --results=out.json --threads=8`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.text, "text", "", "File or directory of text files to index")
	f.StringVar(&opts.counts, "counts", defaultCountsPath, "Write word counts to this path")
	f.StringVar(&opts.index, "index", defaultIndexPath, "Write the inverted index to this path")
	f.StringVar(&opts.query, "query", "", "File with one query per line")
	f.StringVar(&opts.results, "results", defaultResultsPath, "Write query results to this path")
	f.StringVar(&opts.threads, "threads", "0", "Use a worker pool of this size")
	f.BoolVar(&opts.partial, "partial", false, "Match indexed stems that start with a query stem")
	f.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	f.IntVar(&opts.metricsPort, "metrics-port", 0, "Serve Prometheus metrics and health probes on this port")
	f.Lookup("counts").NoOptDefVal = defaultCountsPath
	f.Lookup("index").NoOptDefVal = defaultIndexPath
	f.Lookup("results").NoOptDefVal = defaultResultsPath
	f.Lookup("threads").NoOptDefVal = "0"

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("partial") {
		cfg.Index.Partial = opts.partial
	}
	if flags.Changed("metrics-port") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = opts.metricsPort
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, runID)
	ctx, root := tracing.StartSpan(ctx, "textsearch", runID)
	log := logger.FromContext(ctx)

	m := metrics.New(nil)
	checker := health.NewChecker()
	var built atomic.Bool
	checker.Register("index", health.Flag(&built, "index build in progress"))
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port, checker.Routes())
		defer shutdown(context.Background())
	}

	stemmer, err := tokenizer.NewStemmer(tokenizer.DefaultCacheSize)
	if err != nil {
		return err
	}
	idx := index.NewMemoryIndex()

	var queue *workqueue.WorkQueue
	if flags.Changed("threads") {
		queue = workqueue.New(poolSize(opts.threads, cfg.Index.Workers),
			workqueue.WithMetrics(m),
			workqueue.WithLogger(log.With("component", "workqueue")),
		)
		defer queue.Join()
	}
	log.Info("starting run",
		"text", opts.text,
		"query", opts.query,
		"partial", cfg.Index.Partial,
		"workers", workers(queue),
	)

	recorder := analytics.NewRecorder(runID, nil, analytics.NewAggregator())
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		events := collector.NewBatchCollector(producer, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
		events.Start(ctx)
		defer events.Close()
		recorder = analytics.NewRecorder(runID, events, recorder.Aggregator())
		log.Info("analytics events enabled", "topic", cfg.Kafka.Topic)
	}

	sinks := []processor.Option{processor.WithSink(recorder)}
	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, result mirror disabled", "error", err)
		} else {
			defer client.Close()
			mirror := cache.New(client, cfg.Redis)
			if err := mirror.Invalidate(ctx); err != nil {
				log.Warn("clearing stale results failed", "error", err)
			}
			sinks = append(sinks, processor.WithSink(mirror))
			checker.Register("redis", health.Ping(client.Ping))
			log.Info("result mirror enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	// Input errors are reported but do not stop the remaining outputs; the
	// first one decides the exit code.
	var firstErr error
	report := func(msg string, err error) {
		log.Error(msg, "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if opts.text != "" {
		builder := indexer.NewBuilder(idx, stemmer,
			indexer.WithWorkQueue(queue),
			indexer.WithExtensions(cfg.Index.Extensions),
			indexer.WithMetrics(m),
		)
		stats, err := builder.Build(ctx, opts.text)
		if err != nil {
			report("unable to build index", err)
		} else {
			recorder.RecordBuild(opts.text, stats, idx.NumWords())
		}
	}
	built.Store(true)

	if flags.Changed("counts") {
		if err := jsonwriter.WriteCounts(opts.counts, idx.ViewCounts()); err != nil {
			report("unable to write counts", err)
		}
	}
	if flags.Changed("index") {
		if err := jsonwriter.WriteIndex(opts.index, idx.ViewIndex()); err != nil {
			report("unable to write index", err)
		}
	}

	proc := processor.New(idx, stemmer, cfg.Index.Partial,
		append(sinks, processor.WithWorkQueue(queue), processor.WithMetrics(m))...,
	)
	if opts.query != "" && ctx.Err() == nil {
		queryCtx, span := tracing.StartChildSpan(ctx, "queries.process")
		if err := proc.ProcessQueriesFrom(queryCtx, opts.query); err != nil {
			report("unable to process queries", err)
		}
		span.SetAttr("queries", proc.NumQueries())
		span.End()
	}
	if flags.Changed("results") {
		if err := proc.WriteResults(opts.results); err != nil {
			report("unable to write results", err)
		}
	}

	root.End()
	root.Log(log)
	summarize(log, recorder.Aggregator().Stats(5), idx)
	return firstErr
}

// poolSize resolves the --threads value. Unparsable or non-positive values
// fall back to the configured worker count, then to the default.
func poolSize(value string, configured int) int {
	n, err := strconv.Atoi(value)
	if err == nil && n > 0 {
		return n
	}
	if configured > 0 {
		return configured
	}
	return config.DefaultWorkers
}

func workers(q *workqueue.WorkQueue) int {
	if q == nil {
		return 1
	}
	return q.Size()
}

func summarize(log *slog.Logger, stats analytics.RunStats, idx *index.MemoryIndex) {
	log.Info("run complete",
		"locations", idx.NumLocations(),
		"stems", idx.NumWords(),
		"queries", stats.Queries,
		"zero_result_queries", stats.ZeroResultCount,
		"avg_results", stats.AvgResults,
	)
	for _, q := range stats.TopQueries {
		log.Debug("top query", "query", q.Query, "results", q.Results)
	}
}
