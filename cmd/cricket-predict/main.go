package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rewired-gh/cricketoracle/internal/config"
	"github.com/rewired-gh/cricketoracle/internal/dataset"
	"github.com/rewired-gh/cricketoracle/internal/logger"
	"github.com/rewired-gh/cricketoracle/internal/shell"
	"github.com/rewired-gh/cricketoracle/internal/stats"
)

const configPath = "configs/config.yaml"

func main() {
	os.Exit(run(configPath, os.Stdin, os.Stdout, os.Stderr))
}

// run executes one interactive session and returns the process exit code.
func run(cfgPath string, in io.Reader, out, errOut io.Writer) int {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(errOut, "Failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "Invalid configuration: %v\n", err)
		return 1
	}
	logger.InitWithWriter(errOut, cfg.Logging.Level, cfg.Logging.Format)

	// The CLI opens the dataset path literally, relative to the working directory.
	src := cfg.Dataset.Path
	records, err := dataset.Load(context.Background(), src,
		dataset.WithComma(cfg.Comma()),
		dataset.WithTimeout(cfg.Dataset.Timeout),
		dataset.WithRetry(cfg.Dataset.MaxRetries, cfg.Dataset.RetryDelayBase),
	)
	if err != nil {
		fmt.Fprintf(errOut, "Error loading data: %v\n", err)
		return 1
	}

	snap := stats.NewSnapshot(src, records)
	if snap.Anomalies > 0 {
		logger.Warn("%d matches in %s are missing a side or name a winner that did not play", snap.Anomalies, src)
	}

	if err := shell.Run(in, out, snap); err != nil {
		logger.Error("%v", err)
		return 1
	}
	return 0
}
