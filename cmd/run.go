package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cookdex/cookdex/internal/merge"
	"github.com/cookdex/cookdex/internal/render"
)

var (
	runFile        string
	runMode        string
	runOutput      string
	runFormat      string
	runConnections int
	runTimeoutSecs int
)

var runCmd = &cobra.Command{
	Use:   "run [urls...]",
	Short: "Fetch a batch of recipe URLs and write a cookbook document",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		urls := append([]string(nil), args...)
		if runFile != "" {
			fromFile, err := readURLFile(runFile)
			if err != nil {
				return err
			}
			urls = append(urls, fromFile...)
		}
		if len(urls) == 0 {
			return eris.New("no URLs given (pass them as arguments or via --file)")
		}

		if runMode == "" {
			runMode = cfg.Fetch.Mode
		}
		mode, err := merge.ParseMode(runMode)
		if err != nil {
			return err
		}

		if runFormat == "" {
			runFormat = cfg.Output.Format
		}
		format, err := render.ParseFormat(runFormat)
		if err != nil {
			return err
		}

		if runConnections > 0 {
			cfg.Fetch.Connections = runConnections
		}
		if runTimeoutSecs > 0 {
			cfg.Fetch.TimeoutSecs = runTimeoutSecs
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		start := time.Now()
		result, err := e.Pipeline.Run(ctx, urls, mode)
		if err != nil {
			return eris.Wrap(err, "batch run")
		}
		zap.L().Info("batch complete",
			zap.String("run_id", result.RunID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Int("records", len(result.Records)),
		)

		out := os.Stdout
		if runOutput != "" {
			f, err := os.Create(runOutput)
			if err != nil {
				return eris.Wrapf(err, "create output file %s", runOutput)
			}
			defer f.Close()
			out = f
		}
		if err := render.Write(out, result.Records, format); err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, result.Report.String())
		return nil
	},
}

// readURLFile reads one URL per line, skipping blanks and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open url file %s", path)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "read url file %s", path)
	}
	return urls, nil
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "file with one URL per line")
	runCmd.Flags().StringVar(&runMode, "mode", "", "cache mode: default, only or new")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output file (default stdout)")
	runCmd.Flags().StringVar(&runFormat, "format", "", "output format: txt, md or json")
	runCmd.Flags().IntVar(&runConnections, "connections", 0, "concurrent fetches (default from config)")
	runCmd.Flags().IntVar(&runTimeoutSecs, "timeout", 0, "per-fetch timeout in seconds (default from config)")
	rootCmd.AddCommand(runCmd)
}
