//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pgEdge/pgedge-retrieval-engine/internal/config"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/database"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/engine"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/ensemble"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/guideline"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/llm"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/llm/factory"
	"github.com/pgEdge/pgedge-retrieval-engine/internal/rerank"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-alpha1"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var (
		showVersion  = flag.Bool("version", false, "Show version information")
		showHelp     = flag.Bool("help", false, "Show help message")
		configPath   = flag.String("config", "", "Path to configuration file")
		query        = flag.String("query", "", "Run a hybrid search for the given query")
		adaptive     = flag.Bool("adaptive", false, "Use the adaptive threshold cascade instead of a fixed cutoff")
		qa           = flag.Bool("qa", false, "Probe for a single near-exact answer instead of a ranking")
		matchContext = flag.String("match", "", "Match the given context text against the guideline catalog")
		reindex      = flag.Bool("reindex", false, "Recompute and store guideline condition embeddings")
		runEnsemble  = flag.Bool("ensemble", false, "Estimate result reliability across perturbed strategies")
		topN         = flag.Int("top", 0, "Maximum number of results (0 uses the configured default)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `pgEdge Retrieval Engine - Hybrid search and guideline matching for PostgreSQL

Usage:
    pgedge-retrieval-engine [options]

Options:
    -config string
        Path to configuration file. If not specified, searches:
        1. /etc/pgedge/pgedge-retrieval-engine.yaml
        2. pgedge-retrieval-engine.yaml (in binary directory)

    -query string
        Run a hybrid search and print the ranked results as JSON

    -adaptive
        With -query, relax the similarity threshold step by step
        instead of applying a fixed cutoff

    -qa
        With -query, probe for a single near-exact answer

    -ensemble
        With -query, rerun the search under perturbed tunings and
        report how consistently the top result wins

    -match string
        Match the given context text against the guideline catalog
        and print the selected guideline as JSON

    -reindex
        Recompute condition embeddings for every guideline and store
        them back, then exit

    -top int
        Maximum number of results to return

    -version
        Show version information and exit

    -help
        Show this help message and exit

For more information, visit: https://github.com/pgEdge/pgedge-retrieval-engine
`)
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		fmt.Printf("pgEdge Retrieval Engine\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Build Time: %s\n", buildTime)
		fmt.Printf("  Git Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	if *query == "" && *matchContext == "" && !*reindex {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -query, -match or -reindex")
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	opts := runOptions{
		query:        *query,
		adaptive:     *adaptive,
		qa:           *qa,
		matchContext: *matchContext,
		reindex:      *reindex,
		ensemble:     *runEnsemble,
		topN:         *topN,
	}
	if err := run(*configPath, opts, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	query        string
	adaptive     bool
	qa           bool
	matchContext string
	reindex      bool
	ensemble     bool
	topN         int
}

func run(configPath string, opts runOptions, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	apiKeys, err := config.NewAPIKeyLoader(cfg.APIKeys).LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load API keys: %w", err)
	}

	embedder, err := factory.NewEmbeddingProvider(cfg.Embedding, cfg.Engine.EmbeddingDimensions, apiKeys)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}

	var completer llm.CompletionProvider
	if cfg.Selection.Provider != "" {
		completer, err = factory.NewCompletionProvider(cfg.Selection, apiKeys)
		if err != nil {
			return fmt.Errorf("failed to create selection provider: %w", err)
		}
	}

	var reranker engine.Reranker
	if cfg.Rerank.Enabled {
		rerankOpts := []rerank.ClientOption{}
		if cfg.Rerank.APIKey != "" {
			rerankOpts = append(rerankOpts, rerank.WithAPIKey(cfg.Rerank.APIKey))
		}
		if cfg.Rerank.Timeout > 0 {
			rerankOpts = append(rerankOpts, rerank.WithTimeout(cfg.Rerank.Timeout))
		}
		reranker = rerank.NewClient(cfg.Rerank.URL, rerankOpts...)
	}

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	if opts.reindex {
		matcher, err := guideline.NewMatcher(cfg.Engine, embedder, completer, logger)
		if err != nil {
			return err
		}
		guidelines, err := pool.LoadAllGuidelines(ctx, cfg.Guidelines)
		if err != nil {
			return err
		}
		for _, g := range guidelines {
			embedding, err := matcher.Index(ctx, g)
			if err != nil {
				return fmt.Errorf("failed to index guideline %d: %w", g.ID, err)
			}
			if err := pool.UpdateGuidelineIndex(ctx, cfg.Guidelines, g.ID, embedding); err != nil {
				return err
			}
		}
		logger.Info("guideline reindex complete", "count", len(guidelines))
		return nil
	}

	if opts.matchContext != "" {
		matcher, err := guideline.NewMatcher(cfg.Engine, embedder, completer, logger)
		if err != nil {
			return err
		}
		guidelines, err := pool.LoadGuidelines(ctx, cfg.Guidelines)
		if err != nil {
			return err
		}
		if err := matcher.Load(guidelines); err != nil {
			return err
		}

		result, err := matcher.Match(ctx, opts.matchContext)
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Fprintln(os.Stderr, "no guideline matched")
			return nil
		}
		if result.Confidence < cfg.Engine.MatchConfidenceThreshold {
			logger.Warn("match confidence below threshold",
				"confidence", result.Confidence,
				"threshold", cfg.Engine.MatchConfidenceThreshold)
		}
		return out.Encode(result)
	}

	eng, err := engine.New(cfg.Engine, embedder, reranker, logger)
	if err != nil {
		return err
	}
	records, embeddings, err := pool.LoadRecords(ctx, cfg.Records)
	if err != nil {
		return err
	}
	if err := eng.Load(records, embeddings); err != nil {
		return err
	}

	switch {
	case opts.qa:
		answer, err := eng.QAResponse(ctx, opts.query)
		if err != nil {
			return err
		}
		if answer == nil {
			fmt.Fprintln(os.Stderr, "no near-exact answer found")
			return nil
		}
		return out.Encode(answer)

	case opts.ensemble:
		estimator := &ensemble.Estimator{
			Strategies: ensemble.DefaultStrategies(),
			Logger:     logger,
		}
		estimate, err := estimator.Run(ctx, func(ctx context.Context, s ensemble.Strategy) (ensemble.Outcome, error) {
			resp, err := eng.SearchWith(ctx, opts.query, engine.SearchOptions{
				TopN:                opts.topN,
				LexicalWeight:       s.LexicalWeight,
				VectorWeight:        s.VectorWeight,
				SimilarityThreshold: s.Threshold,
			})
			if err != nil {
				return ensemble.Outcome{}, err
			}
			if len(resp.Candidates) == 0 {
				return ensemble.Outcome{}, fmt.Errorf("no results")
			}
			top := resp.Candidates[0]
			// Confidence is the winner's share of the top-two fused
			// scores, so it is comparable across tunings.
			confidence := 1.0
			if len(resp.Candidates) > 1 {
				second := resp.Candidates[1]
				confidence = top.FusedScore / (top.FusedScore + second.FusedScore)
			}
			return ensemble.Outcome{ID: top.ID, Confidence: confidence}, nil
		})
		if err != nil {
			return err
		}
		return out.Encode(estimate)

	case opts.adaptive:
		resp, err := eng.AdaptiveSearch(ctx, opts.query, opts.topN)
		if err != nil {
			return err
		}
		return out.Encode(resp)

	default:
		resp, err := eng.Search(ctx, opts.query, opts.topN)
		if err != nil {
			return err
		}
		return out.Encode(resp)
	}
}
