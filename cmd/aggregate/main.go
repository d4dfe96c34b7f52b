// Command aggregate prints class-average course and program outcome scores
// for each course. It computes only; nothing is written back.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/giraph/engine/internal/models"
	"github.com/giraph/engine/internal/repository"
	"github.com/giraph/engine/internal/services"
	"github.com/giraph/engine/pkg/config"
	"github.com/giraph/engine/pkg/database"
	"github.com/giraph/engine/pkg/logger"
)

func main() {
	course := flag.String("course", "", "limit output to one course id")
	format := flag.String("format", "table", "output format: table or json")
	flag.Parse()

	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.Open(context.Background(), database.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DatabaseURL,
		Logger: log,
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	courseRepo := repository.NewCourseRepository(db)
	dir, err := repository.NewCachedCourseDirectory(courseRepo, cfg.CourseCacheSize)
	if err != nil {
		log.Fatal("failed to build course cache", zap.Error(err))
	}
	graphs := services.NewGraphService(db, repository.NewNodeRepository(db), repository.NewRelationRepository(db), dir)

	var only *uuid.UUID
	if *course != "" {
		id, err := uuid.Parse(*course)
		if err != nil {
			log.Fatal("invalid -course", zap.Error(err))
		}
		only = &id
	}
	if err := run(context.Background(), os.Stdout, courseRepo, graphs, only, *format); err != nil {
		log.Fatal("aggregation failed", zap.Error(err))
	}
}

// CourseReport is the outcome scores of one course.
type CourseReport struct {
	CourseID        uuid.UUID      `json:"course_id"`
	Code            string         `json:"code"`
	CourseOutcomes  []OutcomeScore `json:"course_outcomes"`
	ProgramOutcomes []OutcomeScore `json:"program_outcomes"`
}

type OutcomeScore struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func run(ctx context.Context, out io.Writer, courses repository.CourseRepository, graphs services.GraphService, only *uuid.UUID, format string) error {
	list, err := courses.List(ctx)
	if err != nil {
		return err
	}
	var reports []CourseReport
	for _, c := range list {
		if only != nil && c.ID != *only {
			continue
		}
		r, err := report(ctx, graphs, c)
		if err != nil {
			return err
		}
		reports = append(reports, r)
	}
	if only != nil && len(reports) == 0 {
		return fmt.Errorf("course %s not found", only)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case "table":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COURSE\tLAYER\tOUTCOME\tSCORE")
		for _, r := range reports {
			for _, o := range r.CourseOutcomes {
				fmt.Fprintf(tw, "%s\tCO\t%s\t%.2f\n", r.Code, o.Name, o.Score)
			}
			for _, o := range r.ProgramOutcomes {
				fmt.Fprintf(tw, "%s\tPO\t%s\t%.2f\n", r.Code, o.Name, o.Score)
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func report(ctx context.Context, graphs services.GraphService, c models.Course) (CourseReport, error) {
	id := c.ID
	view, err := graphs.GetScoredGraph(ctx, &id)
	if err != nil {
		return CourseReport{}, err
	}
	return CourseReport{
		CourseID:        c.ID,
		Code:            c.Code,
		CourseOutcomes:  scores(view.CourseOutcomes),
		ProgramOutcomes: scores(view.ProgramOutcomes),
	}, nil
}

func scores(nodes []services.NodeView) []OutcomeScore {
	out := make([]OutcomeScore, 0, len(nodes))
	for _, n := range nodes {
		s := OutcomeScore{ID: n.ID, Name: n.Name}
		if n.Score != nil {
			s.Score = *n.Score
		}
		out = append(out, s)
	}
	return out
}
