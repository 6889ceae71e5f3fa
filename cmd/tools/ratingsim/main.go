// Command ratingsim replays interview scores through the rating rule.
//
//	ratingsim -start 1200 80:medium 40:hard 90:easy
//	printf '80 medium\n40 hard\n' | ratingsim -subject alice -dsn "$DATABASE_URL"
//
// Without -dsn nothing is stored. With -dsn every step is applied to the subject's stored
// rating and history.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/mockview/backend/internal/database"
	model "github.com/zhouzirui/mockview/backend/internal/model/rating"
	ratingrepo "github.com/zhouzirui/mockview/backend/internal/repository/rating"
	"github.com/zhouzirui/mockview/backend/internal/service/rating"
	"github.com/zhouzirui/mockview/backend/pkg/logger"
)

type step struct {
	Score      float64
	Difficulty model.Difficulty
}

type row struct {
	Step       int              `json:"step"`
	Score      float64          `json:"score"`
	Difficulty model.Difficulty `json:"difficulty"`
	Outcome    model.Outcome    `json:"outcome"`
	Old        int              `json:"oldRating"`
	New        int              `json:"newRating"`
	Delta      int              `json:"delta"`
}

func main() {
	log := logger.Named("ratingsim")
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Debug(ctx, "no .env file loaded", logger.Error(err))
	}

	start := flag.Int("start", rating.BaselineRating, "起始评分（仅在未使用 -dsn 时生效）")
	subject := flag.String("subject", "ratingsim", "写入数据库时使用的 subjectId")
	dsn := flag.String("dsn", "", "Postgres DSN，设置后结果会写入数据库")
	category := flag.String("category", "simulation", "历史记录的类别")
	asJSON := flag.Bool("json", false, "以 JSON 输出")
	timeout := flag.Duration("timeout", 30*time.Second, "数据库操作超时时间")
	flag.Parse()

	steps, err := collectSteps(flag.Args(), os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(steps) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var rows []row
	if *dsn == "" {
		rows, err = simulate(*start, steps)
	} else {
		ctx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()
		rows, err = applyStored(ctx, *dsn, *subject, *category, steps)
	}
	if err != nil {
		log.Error(ctx, "replay failed", logger.Error(err))
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rows)
		return
	}
	printTable(os.Stdout, rows)
}

// collectSteps reads score:difficulty arguments, or "score difficulty" lines from stdin when
// there are no arguments.
func collectSteps(args []string, stdin io.Reader) ([]step, error) {
	var raw []string
	if len(args) > 0 {
		raw = args
	} else if stdin != nil && !isTerminal(stdin) {
		sc := bufio.NewScanner(stdin)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw = append(raw, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}

	steps := make([]step, 0, len(raw))
	for _, item := range raw {
		s, err := parseStep(item)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func parseStep(item string) (step, error) {
	fields := strings.FieldsFunc(item, func(r rune) bool {
		return r == ':' || r == ' ' || r == '\t' || r == ','
	})
	if len(fields) != 2 {
		return step{}, fmt.Errorf("expected score:difficulty, got %q", item)
	}
	score, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return step{}, fmt.Errorf("bad score in %q: %w", item, err)
	}
	difficulty, err := rating.ParseDifficulty(fields[1])
	if err != nil {
		return step{}, err
	}
	return step{Score: score, Difficulty: difficulty}, nil
}

func simulate(start int, steps []step) ([]row, error) {
	rows := make([]row, 0, len(steps))
	current := start
	for i, s := range steps {
		u, err := rating.Compute(current, s.Score, s.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		rows = append(rows, row{
			Step:       i + 1,
			Score:      s.Score,
			Difficulty: s.Difficulty,
			Outcome:    u.Outcome,
			Old:        u.OldRating,
			New:        u.NewRating,
			Delta:      u.Delta,
		})
		current = u.NewRating
	}
	return rows, nil
}

func applyStored(ctx context.Context, dsn, subject, category string, steps []step) ([]row, error) {
	db, err := database.Open(ctx, dsn, false)
	if err != nil {
		return nil, err
	}
	defer database.Close(db)

	if err := ratingrepo.Migrate(db); err != nil {
		return nil, err
	}
	svc := rating.NewService(ratingrepo.NewPostgresRepository(db))
	return applyAll(ctx, svc, subject, category, steps)
}

func applyAll(ctx context.Context, svc *rating.Service, subject, category string, steps []step) ([]row, error) {
	rows := make([]row, 0, len(steps))
	for i, s := range steps {
		res, err := svc.Apply(ctx, subject, s.Score, s.Difficulty, category)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		rows = append(rows, row{
			Step:       i + 1,
			Score:      s.Score,
			Difficulty: s.Difficulty,
			Outcome:    res.Outcome,
			Old:        res.OldRating,
			New:        res.NewRating,
			Delta:      res.Delta,
		})
	}
	return rows, nil
}

func printTable(w io.Writer, rows []row) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tSCORE\tDIFFICULTY\tOUTCOME\tOLD\tNEW\tDELTA")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%.1f\t%s\t%s\t%d\t%d\t%+d\n", r.Step, r.Score, r.Difficulty, r.Outcome, r.Old, r.New, r.Delta)
	}
	_ = tw.Flush()
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return true
	}
	return info.Mode()&os.ModeCharDevice != 0
}
