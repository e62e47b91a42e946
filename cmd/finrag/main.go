package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"finrag/internal/config"
	"finrag/internal/domain"
	"finrag/internal/embedding/hashing"
	"finrag/internal/embedding/openai"
	"finrag/internal/extractor"
	"finrag/internal/ingest"
	"finrag/internal/ledger"
	"finrag/internal/llm"
	"finrag/internal/retrieval"
	"finrag/internal/tui"
	"finrag/internal/vectorstore/memory"
	"finrag/internal/vectorstore/qdrant"
)

const usage = `Usage: finrag [--config=config.yaml] <command>

Commands:
  ingest [dir]             process new PDFs from dir (default: data_dir from config)
  query <owner> <text...>  print the top matching chunks for an owner
  ask <owner>              interactive query session with AI summaries
`

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/finrag/config.yaml if not provided)")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	emb := buildEmbedder(cfg)
	st := buildStore(cfg)

	switch args[0] {
	case "ingest":
		dir := cfg.DataDir
		if len(args) > 1 {
			dir = args[1]
		}
		runIngest(dir, cfg, emb, st)
	case "query":
		if len(args) < 3 {
			fmt.Print(usage)
			os.Exit(1)
		}
		runQuery(args[1], strings.Join(args[2:], " "), cfg, emb, st)
	case "ask":
		if len(args) != 2 {
			fmt.Print(usage)
			os.Exit(1)
		}
		runAsk(args[1], cfg, emb, st)
	default:
		fmt.Print(usage)
		os.Exit(1)
	}
}

func runIngest(dir string, cfg *config.AppConfig, emb domain.Embedder, st domain.Storage) {
	pipe := ingest.New(extractor.NewPDF(), emb, st, ledger.New(cfg.Ledger))
	report, err := pipe.Run(dir)
	if err != nil {
		log.Fatal().Err(err).Msg("ingestion failed")
	}
	if len(report.Files) == 0 {
		fmt.Printf("No new PDFs to process (%d already ingested).\n", report.Skipped)
		return
	}
	fmt.Printf("Processed %d file(s), stored %d chunk(s); %d skipped, %d failed.\n",
		report.Processed(), report.Upserted, report.Skipped, report.Failed())
	for _, f := range report.Files {
		if f.Err != nil {
			fmt.Printf("  failed %s: %v\n", f.File, f.Err)
		}
	}
	if report.Failed() > 0 {
		os.Exit(1)
	}
}

func runQuery(owner, query string, cfg *config.AppConfig, emb domain.Embedder, st domain.Storage) {
	if err := st.Init(emb.Dimension()); err != nil {
		log.Fatal().Err(err).Msg("vector store init failed")
	}
	results, err := retrieval.New(emb, st).Retrieve(owner, query, cfg.Retrieval.TopK)
	if err != nil {
		log.Fatal().Err(err).Msg("query failed")
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. Page %d | Score: %.2f\n%s\n\n", i+1, r.Page, r.Score, r.Text)
	}
}

func runAsk(owner string, cfg *config.AppConfig, emb domain.Embedder, st domain.Storage) {
	completer, err := llm.NewClient(llm.Config{
		BaseURL:   cfg.LLM.BaseURL,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		Model:     cfg.LLM.Model,
		Timeout:   time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("llm client init failed")
	}
	if err := st.Init(emb.Dimension()); err != nil {
		log.Fatal().Err(err).Msg("vector store init failed")
	}
	m := tui.New(retrieval.New(emb, st), completer, owner, cfg.Retrieval.TopK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal().Err(err).Msg("ask session failed")
	}
}

func buildEmbedder(cfg *config.AppConfig) domain.Embedder {
	switch cfg.Embedder.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Embedder.Dimension)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			log.Fatal().Msg("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("openai embedder init failed")
		}
		return client
	default:
		log.Fatal().Str("type", cfg.Embedder.Type).Msg("unknown embedder")
		return nil
	}
}

func buildStore(cfg *config.AppConfig) domain.Storage {
	switch cfg.VectorStore.Type {
	case "qdrant", "":
		if cfg.VectorStore.Qdrant == nil {
			log.Fatal().Msg("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	case "memory":
		return memory.NewStorage()
	default:
		log.Fatal().Str("type", cfg.VectorStore.Type).Msg("unknown vector store")
		return nil
	}
}
