package cli

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"ragpipe/config"
	"ragpipe/internal/adapter/embedding"
	"ragpipe/internal/adapter/index"
	"ragpipe/internal/adapter/memory"
	"ragpipe/internal/adapter/planner"
	"ragpipe/internal/adapter/rank"
	"ragpipe/internal/adapter/search"
	"ragpipe/internal/adapter/synthesis"
	"ragpipe/internal/port"
	"ragpipe/internal/stream"
	"ragpipe/internal/usecase"
)

// pipeline is the assembled query path plus the resources it owns.
type pipeline struct {
	orchestrator *usecase.Orchestrator
	emitter      *stream.Emitter
	embedder     port.Embedder
	index        *index.BoltIndex
	memory       port.MemoryStore
}

func (p *pipeline) Close() {
	p.index.Close()
	p.memory.Close()
}

// buildPipeline wires adapters per configuration. Backend selection happens
// here, at the composition root, never inside the pipeline.
func buildPipeline(cfg *config.Config, dir string) (*pipeline, error) {
	if err := config.EnsureDataDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	idx, err := index.NewBoltIndex(config.IndexDBPath(dir), embedder.Dimension())
	if err != nil {
		return nil, err
	}

	memStore, err := buildMemoryStore(cfg.Memory, dir)
	if err != nil {
		idx.Close()
		return nil, err
	}

	synth, err := buildSynthesizer(cfg.Synthesis)
	if err != nil {
		idx.Close()
		memStore.Close()
		return nil, err
	}

	lexical := planner.NewLexicalPlanner()
	engine := search.NewHybridEngine(embedder, idx, lexical)
	scorer := rank.NewDecayScorer(memStore, cfg.Pipeline.HalfLifeWeeks, cfg.Pipeline.UtilityWeight)
	emitter := stream.NewEmitter(cfg.Pipeline.StreamBuffer, slog.Default())

	orchestrator := usecase.NewOrchestrator(lexical, engine, scorer, synth, emitter, usecase.Options{
		Alpha:          cfg.Pipeline.Alpha,
		Limit:          cfg.Pipeline.Limit,
		MaxRetries:     cfg.Pipeline.MaxRetries,
		RetryBackoff:   cfg.Pipeline.RetryBackoff(),
		SessionTimeout: cfg.Pipeline.SessionTimeout(),
	}, slog.Default())

	return &pipeline{
		orchestrator: orchestrator,
		emitter:      emitter,
		embedder:     embedder,
		index:        idx,
		memory:       memStore,
	}, nil
}

func buildEmbedder(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.BaseURL != "" {
			return embedding.NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL)
		}
		return embedding.NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model)
	case "mock", "":
		return embedding.NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

func buildSynthesizer(cfg config.SynthesisConfig) (port.Synthesizer, error) {
	switch cfg.Provider {
	case "openai":
		return synthesis.NewOpenAISynthesizer(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.MaxEvidence)
	case "extractive", "":
		return synthesis.NewExtractiveSynthesizer(cfg.MaxEvidence), nil
	default:
		return nil, fmt.Errorf("unknown synthesis provider: %s", cfg.Provider)
	}
}

func buildMemoryStore(cfg config.MemoryConfig, dir string) (port.MemoryStore, error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return memory.NewRedisStore(client), nil
	case "memory":
		return memory.NewMemStore(), nil
	case "bolt", "":
		return memory.NewBoltStore(config.MemoryDBPath(dir))
	default:
		return nil, fmt.Errorf("unknown memory backend: %s", cfg.Backend)
	}
}
