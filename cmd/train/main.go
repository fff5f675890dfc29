package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/playmatatu/beerpong/internal/config"
	"github.com/playmatatu/beerpong/internal/game"
	"github.com/playmatatu/beerpong/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		scenarioFile = flag.String("scenario", "", "scenario YAML file (default: built-in six-cup triangle)")
		episodes     = flag.Int("episodes", 100, "episodes per job")
		jobs         = flag.Int("jobs", 1, "number of jobs run in parallel")
		seed         = flag.Uint64("seed", 0, "base seed; job i uses seed+i (0 = random)")
		maxTicks     = flag.Int("max-ticks", 0, "tick limit per episode (0 = scenario step budget)")
		wrongCup     = flag.String("wrong-cup", "", "wrong cup policy: ignore or penalize")
		targetDraw   = flag.String("target-draw", "", "target draw: legacy or uniform")
		asJSON       = flag.Bool("json", false, "print summaries as JSON")
		env          = flag.String("env", "development", "logging environment")
	)
	flag.Parse()

	logger := logging.New(*env)
	defer logger.Sync()

	if *episodes <= 0 || *jobs <= 0 {
		logger.Fatal("episodes and jobs must be positive")
	}

	scenario := config.DefaultScenario()
	if *scenarioFile != "" {
		sc, err := config.LoadScenario(*scenarioFile)
		if err != nil {
			logger.Fatal("failed to load scenario", zap.String("file", *scenarioFile), zap.Error(err))
		}
		scenario = sc
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summaries := make([]game.TrainingSummary, *jobs)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *jobs; i++ {
		job := game.TrainingJob{
			ID:         uuid.NewString(),
			Episodes:   *episodes,
			MaxTicks:   *maxTicks,
			WrongCup:   *wrongCup,
			TargetDraw: *targetDraw,
		}
		if *seed != 0 {
			job.Seed = *seed + uint64(i)
		}
		g.Go(func() error {
			s, err := game.RunTraining(gctx, scenario, job, nil, logger.Named("train"))
			if err != nil {
				return fmt.Errorf("job %s: %w", job.ID, err)
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal("training failed", zap.Error(err))
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summaries); err != nil {
			logger.Fatal("failed to encode summaries", zap.Error(err))
		}
		return
	}
	printSummaries(summaries)
}

func printSummaries(summaries []game.TrainingSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tEPISODES\tCLEARED\tCUPS\tATTEMPTS\tMEAN\tBEST\tTICKS\tTOOK\tOUTCOMES")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.3f\t%.3f\t%d\t%s\t%s\n",
			s.JobID[:8], s.Episodes, s.Cleared, s.CupsHit, s.Attempts,
			s.MeanReward, s.BestReward, s.Ticks, s.Duration.Round(1e6), outcomes(s.Outcomes))
	}
	w.Flush()
}

func outcomes(m map[game.Outcome]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", k, m[game.Outcome(k)])
	}
	return out
}
