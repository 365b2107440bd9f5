package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/veridex/veridex/internal/probe"
)

const runTimeout = 15 * time.Minute

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9090", "Base URL of the service")
		subjects = flag.String("subjects", "", "Comma-separated subjects to evaluate (default: synthetic)")
		num      = flag.Int("n", probe.DefaultSubjects, "Number of synthetic subjects when none are given")
		topN     = flag.Int("top", probe.DefaultTopN, "Number of ranking entries to fetch")
		timeout  = flag.Duration("timeout", probe.DefaultTimeout, "HTTP request timeout")
		verbose  = flag.Bool("verbose", false, "Print per-subject results")
	)
	flag.Parse()

	cfg := &probe.Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		NumSubjects: *num,
		TopN:        *topN,
		Timeout:     *timeout,
		Verbose:     *verbose,
	}
	if *subjects != "" {
		for _, s := range strings.Split(*subjects, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Subjects = append(cfg.Subjects, s)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := probe.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("probe failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
