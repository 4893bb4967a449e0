package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/config"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/di"
	"github.com/mailsift/mailsift/internal/parser"
)

func main() {
	_ = godotenv.Load() // Pick up a local .env file when present

	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run classifies a single raw message from a file or stdin and prints
// the verdict
func run(
	flags *di.CLIFlags,
	cfg *config.Config,
	logger *zap.Logger,
	msgParser *parser.Parser,
	service *core.ClassificationService,
) error {
	defer logger.Sync()

	// Read message from file or stdin
	var raw []byte
	var err error
	name := "stdin"
	if flags.InputFile != "" {
		name = flags.InputFile
		raw, err = os.ReadFile(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to read input file", zap.Error(err), zap.String("file", flags.InputFile))
		}
		logger.Info("Reading message from file", zap.String("file", flags.InputFile))
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			logger.Fatal("Failed to read stdin", zap.Error(err))
		}
		logger.Info("Reading message from stdin")
	}

	msg, err := msgParser.Parse(name, raw)
	if err != nil {
		logger.Fatal("Failed to parse message", zap.Error(err))
	}

	// Print message summary
	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s\n", msg.From)
	fmt.Printf("Sender: %s\n", msg.Address)
	fmt.Printf("Date: %s\n", msg.Date.Format(time.RFC1123Z))
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Body length: %d bytes\n", len(msg.Body))
	if msg.UnsubscribeURL != "" {
		fmt.Printf("Unsubscribe URL: %s\n", msg.UnsubscribeURL)
	}
	fmt.Printf("\n")

	// Classify
	fmt.Printf("=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", cfg.GetClassifier().Provider)
	fmt.Printf("Ad threshold: %.2f\n", cfg.GetClassifier().AdThreshold)

	startTime := time.Now()
	result, err := service.Classify(context.Background(), msg)
	if err != nil {
		logger.Fatal("Failed to classify message", zap.Error(err))
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Label: %s\n", result.Label)
	fmt.Printf("Score: %.4f\n", result.Score)
	fmt.Printf("Confidence: %.4f\n", result.Confidence)
	fmt.Printf("Explanation: %s\n", result.Explanation)
	fmt.Printf("Model used: %s\n", result.ModelUsed)
	fmt.Printf("Processing time: %v\n", duration)

	return nil
}
