package admin

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"triage-backend/internal/feedback"
	"triage-backend/internal/jobs"
	"triage-backend/internal/shared/metrics"
	"triage-backend/internal/shared/storage/object"
	"triage-backend/internal/shared/telemetry"
	"triage-backend/internal/tickets"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

const (
	TrainingKind = "train"

	DefaultTrainingDuration    = 15 * time.Second
	DefaultMinAnalyticsTickets = 200
	MaxUploadBytes             = 20 << 20
)

var ErrUploadTooLarge = errors.New("upload too large")

// FeedbackStats reports aggregate feedback counts.
type FeedbackStats interface {
	Stats(ctx context.Context) (feedback.Stats, error)
}

type stopper interface {
	Stop() bool
}

// Service backs the admin dashboard, analytics, knowledge-base upload and training jobs.
type Service struct {
	KB                  tickets.Repo
	Feedback            FeedbackStats
	Jobs                *jobs.Store
	Store               object.ObjectStore
	TrainingDuration    time.Duration
	MinAnalyticsTickets int

	fixtures fixtures
	after    func(time.Duration, func()) stopper

	mu     sync.Mutex
	rng    *rand.Rand
	timers map[string]stopper
}

// NewService constructs a Service with the embedded dashboard fixtures.
func NewService(kb tickets.Repo, fb FeedbackStats, jobStore *jobs.Store, store object.ObjectStore, trainingDuration time.Duration) (*Service, error) {
	var fx fixtures
	if err := yaml.Unmarshal(fixturesYAML, &fx); err != nil {
		return nil, fmt.Errorf("parse admin fixtures: %w", err)
	}
	if trainingDuration <= 0 {
		trainingDuration = DefaultTrainingDuration
	}
	return &Service{
		KB:                  kb,
		Feedback:            fb,
		Jobs:                jobStore,
		Store:               store,
		TrainingDuration:    trainingDuration,
		MinAnalyticsTickets: DefaultMinAnalyticsTickets,
		fixtures:            fx,
		after: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		timers: make(map[string]stopper),
	}, nil
}

// Dashboard gathers knowledge-base and feedback figures concurrently.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		kbSize int
		stats  feedback.Stats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.KB.Count(gctx)
		if err != nil {
			return fmt.Errorf("count knowledge base: %w", err)
		}
		kbSize = n
		return nil
	})
	g.Go(func() error {
		st, err := s.Feedback.Stats(gctx)
		if err != nil {
			return fmt.Errorf("feedback stats: %w", err)
		}
		stats = st
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	kpis := append([]Kpi(nil), s.fixtures.Kpis...)
	if stats.Total > 0 && len(kpis) > 0 {
		kpis[0].Value = fmt.Sprintf("%.0f%%", stats.DeflectionRate()*100)
		kpis[0].Change = fmt.Sprintf("%d responses", stats.Total)
	}

	return Dashboard{
		Kpis:          kpis,
		RootCauses:    append([]ChartPoint(nil), s.fixtures.RootCauses...),
		Heatmap:       s.heatmap(),
		KnowledgeBase: kbSize,
		FeedbackTotal: stats.Total,
	}, nil
}

func (s *Service) heatmap() []HeatmapCell {
	s.mu.Lock()
	defer s.mu.Unlock()
	cells := make([]HeatmapCell, 0, len(tickets.Modules)*len(tickets.Priorities))
	for _, m := range tickets.Modules {
		for _, p := range tickets.Priorities {
			cells = append(cells, HeatmapCell{Category: m, Priority: p, Value: s.rng.Intn(100)})
		}
	}
	return cells
}

// Analytics returns cluster and sentiment data, or insufficient_data when the
// knowledge base is below the minimum size.
func (s *Service) Analytics(ctx context.Context) (Analytics, error) {
	n, err := s.KB.Count(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("count knowledge base: %w", err)
	}
	if n < s.MinAnalyticsTickets {
		return Analytics{Status: AnalyticsInsufficientData}, nil
	}
	series := TimeSeries{
		Labels: append([]string(nil), s.fixtures.Sentiment.Labels...),
		Data:   make([]float64, len(s.fixtures.Sentiment.Data)),
	}
	for i, v := range s.fixtures.Sentiment.Data {
		series.Data[i] = math.Round(v * 100)
	}
	return Analytics{
		Status:        AnalyticsSuccess,
		ClusterData:   append([]ChartPoint(nil), s.fixtures.Clusters...),
		SentimentData: &series,
	}, nil
}

// UploadKnowledgeBase stores a CSV export, profiles it, and imports complete
// ticket rows into the knowledge base.
func (s *Service) UploadKnowledgeBase(ctx context.Context, owner, fileName string, r io.Reader) (EdaReport, error) {
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return EdaReport{}, fmt.Errorf("%w: only .csv files are supported", ErrInvalidDataset)
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return EdaReport{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return EdaReport{}, ErrUploadTooLarge
	}

	rows, cols, kb, err := profile(bytes.NewReader(data))
	if err != nil {
		return EdaReport{}, err
	}

	key, size, _, err := s.Store.Save(ctx, owner, fileName, bytes.NewReader(data))
	if err != nil {
		return EdaReport{}, fmt.Errorf("store upload: %w", err)
	}

	imported := 0
	if len(kb) > 0 {
		imported, err = s.KB.Upsert(ctx, tickets.SourceUpload, kb)
		if err != nil {
			return EdaReport{}, fmt.Errorf("import tickets: %w", err)
		}
	}

	report := EdaReport{
		UploadID:   uuid.NewString(),
		FileName:   fileName,
		FileSize:   size,
		RowCount:   rows,
		Columns:    cols,
		Imported:   imported,
		StorageKey: key,
	}
	telemetry.Info("admin.kb_uploaded", map[string]any{
		"upload_id": report.UploadID,
		"file_name": fileName,
		"rows":      rows,
		"imported":  imported,
	})
	return report, nil
}

// StartTraining launches a simulated training job that completes after TrainingDuration.
func (s *Service) StartTraining(ctx context.Context) (jobs.Job, error) {
	if err := ctx.Err(); err != nil {
		return jobs.Job{}, err
	}
	job := s.Jobs.Create(TrainingKind)
	metrics.IncTrainingStarted()
	telemetry.Info("admin.training_started", map[string]any{"job_id": job.ID})

	s.mu.Lock()
	s.timers[job.ID] = s.after(s.TrainingDuration, func() { s.finishTraining(job.ID) })
	s.mu.Unlock()
	return job, nil
}

func (s *Service) finishTraining(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()

	if _, err := s.Jobs.Update(id, jobs.StatusComplete, ""); err != nil {
		telemetry.Warn("admin.training_update_failed", map[string]any{"job_id": id, "error": err})
		return
	}
	telemetry.Info("admin.training_complete", map[string]any{"job_id": id})
}

// TrainingStatus returns a job by ID, or the latest training job when id is
// empty. With no jobs at all the status is idle.
func (s *Service) TrainingStatus(id string) (jobs.Job, error) {
	if id != "" {
		return s.Jobs.Get(id)
	}
	if j, ok := s.Jobs.Latest(TrainingKind); ok {
		return j, nil
	}
	return jobs.Job{Kind: TrainingKind, Status: jobs.StatusIdle}, nil
}

// Close stops pending training timers; unfinished jobs are marked failed.
func (s *Service) Close() {
	s.mu.Lock()
	pending := s.timers
	s.timers = make(map[string]stopper)
	s.mu.Unlock()
	for id, t := range pending {
		if t.Stop() {
			_, _ = s.Jobs.Update(id, jobs.StatusFailed, "server shutting down")
		}
	}
}
