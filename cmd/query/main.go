package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/PoLsss/ML-lightrag-core/internal/engine"
	"github.com/PoLsss/ML-lightrag-core/internal/query"
	"github.com/PoLsss/ML-lightrag-core/internal/setup"
	"github.com/PoLsss/ML-lightrag-core/internal/setup/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	prompt := flag.String("query", "", "The question to ask")
	mode := flag.String("mode", string(engine.DefaultMode), "Query mode: local, global, hybrid, naive, mix or bypass")
	topK := flag.Int("top-k", 0, "Entities/relationships to retrieve (0 uses the server default)")
	stream := flag.Bool("stream", false, "Print the answer as it is generated")
	stdin := flag.Bool("stdin", false, "Read the question from stdin")
	data := flag.Bool("data", false, "Print the retrieval data as JSON instead of an answer")

	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found")
	}

	cfg := setup.LoadConfig()
	log.Logger = logger.New(getLevel(cfg.LogLevel), cfg.LogFormat, os.Stderr)
	appLogger := log.Logger

	var question string
	if *stdin {
		bytes, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read from stdin")
		}
		question = string(bytes)
	} else if *prompt != "" {
		question = *prompt
	} else {
		log.Fatal().Msg("Please provide a question using -query or -stdin")
	}

	queryMode := engine.Mode(*mode)
	req := query.QueryRequest{Query: question, Mode: &queryMode, Stream: stream}
	if *topK > 0 {
		req.TopK = topK
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid query")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := setup.Wire(ctx, cfg, &appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to load dependencies")
	}
	defer deps.Close()

	switch {
	case *data:
		err = printData(ctx, deps.Service, req)
	case *stream:
		err = printStream(ctx, deps.Service, req)
	default:
		err = printAnswer(ctx, deps.Service, req)
	}
	if err != nil {
		log.Error().Err(err).Msg("Query failed")
		stop()
		deps.Close()
		os.Exit(1)
	}
}

func printAnswer(ctx context.Context, service *query.Service, req query.QueryRequest) error {
	resp, err := service.Query(ctx, req)
	if err != nil {
		return err
	}

	fmt.Println(resp.Response)
	printReferences(resp.References)
	return nil
}

func printStream(ctx context.Context, service *query.Service, req query.QueryRequest) error {
	packets, err := service.QueryStream(ctx, req)
	if err != nil {
		return err
	}

	var refs []query.ReferenceItem
	for p := range packets {
		switch p.Kind {
		case query.PacketContext:
			refs = p.References
		case query.PacketResponse:
			fmt.Print(p.Response)
		case query.PacketComplete:
			fmt.Print(p.Response)
			refs = p.References
		case query.PacketError:
			fmt.Println()
			return fmt.Errorf("stream failed: %s", p.Error)
		}
	}
	fmt.Println()
	printReferences(refs)
	return nil
}

func printData(ctx context.Context, service *query.Service, req query.QueryRequest) error {
	resp, err := service.QueryData(ctx, req)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

func printReferences(refs []query.ReferenceItem) {
	if len(refs) == 0 {
		return
	}
	fmt.Println("\nReferences:")
	for _, ref := range refs {
		fmt.Printf("  [%s] %s\n", ref.ReferenceID, ref.FilePath)
	}
}

// getLevel keeps the CLI quiet unless LOG_LEVEL asks for more.
func getLevel(level string) string {
	if strings.EqualFold(level, "info") {
		return "warn"
	}
	return level
}
