package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/handiism/stimulus/internal/config"
	ioutils "github.com/handiism/stimulus/internal/io"
	"github.com/handiism/stimulus/internal/model"
)

const experimentYAML = `
name: faces
intergroup_order: Sequential
intragroup_order: Sequential
intergroup_behaviour: Select a new group on each show
rate_behaviour: Deterministic
allow_image_repeat: true
amount_of_exhibitions: 4
show_time: 5
interval_time: 1
groups:
  - id: 1
    name: happy
    images:
      - {id: 1, file: happy/a.png}
      - {id: 2, file: happy/b.png}
  - id: 2
    name: sad
    images:
      - {id: 3, file: sad/a.png}
`

func writePNG(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 6))); err != nil {
		t.Fatal(err)
	}
	if err := ioutils.WriteFile(context.Background(), fs, path, buf.Bytes()); err != nil {
		t.Fatal(err)
	}
}

// createTestFs returns a filesystem holding /stim/faces.yaml and its images.
func createTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/stim/happy/a.png")
	writePNG(t, fs, "/stim/happy/b.png")
	writePNG(t, fs, "/stim/sad/a.png")
	if err := afero.WriteFile(fs, "/stim/faces.yaml", []byte(experimentYAML), 0644); err != nil {
		t.Fatal(err)
	}
	return fs
}

func createTestSettings() *config.Settings {
	s := config.DefaultSettings()
	s.OutputDir = "/out"
	s.Seed = 7
	return s
}

// createTestExperiment builds an experiment in memory with the given
// presentation, two groups and three images under /stim.
func createTestExperiment(amount int, pres model.Presentation) *model.Experiment {
	return &model.Experiment{
		Name: "inline",
		Config: &model.Configuration{
			IntergroupOrder:     model.OrderSequential,
			IntragroupOrder:     model.OrderSequential,
			IntergroupBehaviour: model.SelectOnEachShow,
			RateBehaviour:       model.RateProbabilistic,
			AllowImageRepeat:    true,
			AmountOfExhibitions: amount,
			Groups: []*model.Group{
				{Name: "happy", ID: 1, Rate: 1, Images: []*model.Image{
					{File: "happy/a.png", ID: 1, Rate: 1},
					{File: "happy/b.png", ID: 2, Rate: 1},
				}},
				{Name: "sad", ID: 2, Rate: 1, Images: []*model.Image{
					{File: "sad/a.png", ID: 3, Rate: 1},
				}},
			},
		},
		Presentation: pres,
		BaseDir:      "/stim",
	}
}

type progressRecorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *progressRecorder) record(e ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *progressRecorder) count(level ProgressLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Level == level {
			n++
		}
	}
	return n
}

func TestManager_Initialize(t *testing.T) {
	rec := &progressRecorder{}
	m := NewManager(createTestSettings(), rec.record).WithFs(createTestFs(t))

	if err := m.Initialize(context.Background(), "/stim/faces.yaml"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	exp := m.Experiment()
	if exp == nil || exp.Name != "faces" {
		t.Fatalf("Experiment() = %+v", exp)
	}
	if m.Seed() != 7 {
		t.Errorf("Seed() = %d, want 7", m.Seed())
	}
	if m.MissingCount() != 0 {
		t.Errorf("MissingCount() = %d, want 0", m.MissingCount())
	}

	stim := m.Stimulus(2)
	if stim == nil || stim.Missing {
		t.Fatalf("Stimulus(2) = %+v", stim)
	}
	if stim.Path != "/stim/happy/b.png" || stim.Info.Width != 8 || stim.Info.Height != 6 {
		t.Errorf("Stimulus(2) = %+v", stim)
	}
	if stim.Pixels != nil {
		t.Error("pixels should not be decoded unless enabled")
	}

	if shown, total := m.GetProgress(); shown != 0 || total != 4 {
		t.Errorf("GetProgress() = %d, %d; want 0, 4", shown, total)
	}
	if names := m.GetGroupNames(); len(names) != 2 || !strings.HasPrefix(names[0], "happy") {
		t.Errorf("GetGroupNames() = %v", names)
	}
	if rec.count(LevelInfo) == 0 {
		t.Error("expected an info event after loading")
	}
}

func TestManager_InitializeErrors(t *testing.T) {
	fs := createTestFs(t)
	m := NewManager(createTestSettings(), nil).WithFs(fs)

	if err := m.Initialize(context.Background(), "/stim/missing.yaml"); err == nil {
		t.Error("Initialize() expected error for missing file")
	}

	invalid := createTestExperiment(0, model.Presentation{ShowTime: time.Millisecond})
	if err := m.InitializeExperiment(context.Background(), invalid); err == nil {
		t.Error("InitializeExperiment() expected error for zero exhibitions")
	}
	if m.Experiment() != nil {
		t.Error("a failed initialization should not keep the experiment")
	}
}

func TestManager_PreloadPixels(t *testing.T) {
	s := createTestSettings()
	s.PreloadPixels = true
	s.ScreenWidth, s.ScreenHeight = 4, 4
	m := NewManager(s, nil).WithFs(createTestFs(t))

	if err := m.Initialize(context.Background(), "/stim/faces.yaml"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	stim := m.Stimulus(1)
	if stim.Pixels == nil {
		t.Fatal("pixels should be decoded")
	}
	if b := stim.Pixels.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("fitted size = %dx%d, want 4x3", b.Dx(), b.Dy())
	}
}

func TestManager_MissingFiles(t *testing.T) {
	fs := createTestFs(t)
	if err := fs.Remove("/stim/sad/a.png"); err != nil {
		t.Fatal(err)
	}

	t.Run("warning", func(t *testing.T) {
		rec := &progressRecorder{}
		m := NewManager(createTestSettings(), rec.record).WithFs(fs)
		if err := m.Initialize(context.Background(), "/stim/faces.yaml"); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		if m.MissingCount() != 1 {
			t.Errorf("MissingCount() = %d, want 1", m.MissingCount())
		}
		if stim := m.Stimulus(3); stim == nil || !stim.Missing {
			t.Errorf("Stimulus(3) = %+v, want missing", stim)
		}
		if rec.count(LevelWarning) == 0 {
			t.Error("expected a warning for the missing file")
		}
	})

	t.Run("strict", func(t *testing.T) {
		s := createTestSettings()
		s.StrictFiles = true
		m := NewManager(s, nil).WithFs(fs)
		if err := m.Initialize(context.Background(), "/stim/faces.yaml"); err == nil {
			t.Error("Initialize() expected error in strict mode")
		}
	})
}

func TestManager_StimuliDirOverride(t *testing.T) {
	fs := createTestFs(t)
	writePNG(t, fs, "/other/happy/a.png")

	s := createTestSettings()
	s.StimuliDir = "/other"
	m := NewManager(s, nil).WithFs(fs)
	if err := m.Initialize(context.Background(), "/stim/faces.yaml"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if m.Stimulus(1).Path != "/other/happy/a.png" || m.Stimulus(1).Missing {
		t.Errorf("Stimulus(1) = %+v", m.Stimulus(1))
	}
	if m.MissingCount() != 2 {
		t.Errorf("MissingCount() = %d, want 2", m.MissingCount())
	}
}

func TestManager_Run(t *testing.T) {
	m := NewManager(createTestSettings(), nil).WithFs(createTestFs(t))
	if err := m.Initialize(context.Background(), "/stim/faces.yaml"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	var (
		shown   []int
		cleared int
	)
	p := PresenterFuncs{
		ShowFunc: func(_ context.Context, ex model.Exhibition, stim *Stimulus) error {
			if stim == nil || stim.Image != ex.Image {
				t.Errorf("stimulus for %s = %+v", ex, stim)
			}
			shown = append(shown, ex.Image.ID)
			return nil
		},
		ClearFunc: func(context.Context) error {
			cleared++
			return nil
		},
	}

	run, err := m.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !run.Completed {
		t.Error("run should be completed")
	}
	if run.Experiment != "faces" || run.Seed != 7 {
		t.Errorf("run = %s seed %d", run.Experiment, run.Seed)
	}
	if len(run.Events) != 8 {
		t.Fatalf("got %d events, want 8", len(run.Events))
	}
	if len(shown) != 4 || cleared != 4 {
		t.Errorf("shown %d, cleared %d; want 4, 4", len(shown), cleared)
	}

	// Sequential groups, sequential images: happy/a, sad/a, happy/b, sad/a.
	want := []int{1, 3, 2, 3}
	for i, e := range run.Onsets() {
		if e.ImageID != want[i] {
			t.Errorf("onset %d image = %d, want %d", i, e.ImageID, want[i])
		}
		if e.Slot != i {
			t.Errorf("onset %d slot = %d", i, e.Slot)
		}
		if e.IntendedMS != int64(i*6) {
			t.Errorf("onset %d intended = %dms, want %dms", i, e.IntendedMS, i*6)
		}
		if e.ActualMS < e.IntendedMS {
			t.Errorf("onset %d shown early: %dms < %dms", i, e.ActualMS, e.IntendedMS)
		}
	}
	for i := 0; i < len(run.Events); i += 2 {
		on, off := run.Events[i], run.Events[i+1]
		if on.Type != model.EventOnset || off.Type != model.EventOffset || on.Slot != off.Slot {
			t.Errorf("events %d/%d = %s/%s", i, i+1, on.Type, off.Type)
		}
		if off.IntendedMS != on.IntendedMS+5 {
			t.Errorf("offset %d intended = %dms, want %dms", off.Slot, off.IntendedMS, on.IntendedMS+5)
		}
	}
	if run.Events[0].File != "/stim/happy/a.png" || run.Events[0].Label != "happy/a.png" {
		t.Errorf("first event = %+v", run.Events[0])
	}

	if shown, total := m.GetProgress(); shown != 4 || total != 4 {
		t.Errorf("GetProgress() = %d, %d; want 4, 4", shown, total)
	}
	if m.LastRun() != run {
		t.Error("LastRun() should return the finished run")
	}
	if m.Running() {
		t.Error("Running() should be false after the run")
	}
}

func TestManager_PlanMatchesRun(t *testing.T) {
	s := createTestSettings()
	s.Seed = 0
	m := NewManager(s, nil).WithFs(createTestFs(t))

	exp := createTestExperiment(6, model.Presentation{ShowTime: time.Millisecond})
	exp.Config.IntergroupOrder = model.OrderRandom
	exp.Config.IntragroupOrder = model.OrderRandom
	if err := m.InitializeExperiment(context.Background(), exp); err != nil {
		t.Fatalf("InitializeExperiment() error = %v", err)
	}

	plan, err := m.Plan()
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	run, err := m.Run(context.Background(), PresenterFuncs{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	onsets := run.Onsets()
	if len(plan) != len(onsets) {
		t.Fatalf("plan has %d exhibitions, run showed %d", len(plan), len(onsets))
	}
	for i := range plan {
		if plan[i].Image.ID != onsets[i].ImageID {
			t.Errorf("slot %d: planned %d, shown %d", i, plan[i].Image.ID, onsets[i].ImageID)
		}
	}
}

func TestManager_RunErrors(t *testing.T) {
	m := NewManager(createTestSettings(), nil).WithFs(createTestFs(t))

	if _, err := m.Run(context.Background(), PresenterFuncs{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Run() before Initialize error = %v, want ErrNotInitialized", err)
	}
	if _, err := m.Plan(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Plan() before Initialize error = %v, want ErrNotInitialized", err)
	}

	exp := createTestExperiment(2, model.Presentation{ShowTime: time.Millisecond})
	if err := m.InitializeExperiment(context.Background(), exp); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("display lost")
	run, err := m.Run(context.Background(), PresenterFuncs{
		ShowFunc: func(context.Context, model.Exhibition, *Stimulus) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
	if run == nil || run.Completed {
		t.Errorf("run = %+v, want incomplete run", run)
	}
}

func TestManager_RunExhaustion(t *testing.T) {
	m := NewManager(createTestSettings(), nil).WithFs(createTestFs(t))

	// Three images without repeats cannot fill five slots.
	exp := createTestExperiment(5, model.Presentation{ShowTime: time.Millisecond})
	exp.Config.AllowImageRepeat = false
	if err := m.InitializeExperiment(context.Background(), exp); err != nil {
		t.Fatalf("InitializeExperiment() error = %v", err)
	}

	run, err := m.Run(context.Background(), PresenterFuncs{})
	if err == nil {
		t.Fatal("Run() expected exhaustion error")
	}
	if run == nil || run.Completed || len(run.Onsets()) != 3 {
		t.Errorf("run = %+v, want 3 onsets and not completed", run)
	}
}

func TestManager_SkipOnInteraction(t *testing.T) {
	m := NewManager(createTestSettings(), nil).WithFs(createTestFs(t))

	exp := createTestExperiment(3, model.Presentation{
		ShowTime:          10 * time.Second,
		IntervalTime:      time.Millisecond,
		InteractionKey:    "space",
		SkipOnInteraction: true,
	})
	if err := m.InitializeExperiment(context.Background(), exp); err != nil {
		t.Fatal(err)
	}

	p := PresenterFuncs{
		ShowFunc: func(context.Context, model.Exhibition, *Stimulus) error {
			if m.Respond("x") {
				t.Error("Respond() accepted a key other than the interaction key")
			}
			if !m.Respond("SPACE") {
				t.Error("Respond() rejected the interaction key")
			}
			return nil
		},
	}

	started := time.Now()
	run, err := m.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if time.Since(started) > 5*time.Second {
		t.Fatal("responses should have skipped the show time")
	}
	if !run.Completed {
		t.Error("run should be completed")
	}

	responses := run.Responses()
	if len(responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(responses))
	}
	for i, r := range responses {
		if r.Slot != i || r.Label != "SPACE" {
			t.Errorf("response %d = %+v", i, r)
		}
	}

	// Skipped offsets are logged at the moment they happened.
	for _, e := range run.Events {
		if e.Type == model.EventOffset && e.IntendedMS >= 10000 {
			t.Errorf("offset of slot %d still planned at %dms", e.Slot, e.IntendedMS)
		}
	}
}

func TestManager_RespondWithoutRun(t *testing.T) {
	m := NewManager(createTestSettings(), nil).WithFs(createTestFs(t))
	if m.Respond("space") {
		t.Error("Respond() should be rejected before initialization")
	}
	if err := m.Initialize(context.Background(), "/stim/faces.yaml"); err != nil {
		t.Fatal(err)
	}
	if m.Respond("space") {
		t.Error("Respond() should be rejected when no run is in progress")
	}
}

func TestManager_Abort(t *testing.T) {
	m := NewManager(createTestSettings(), nil).WithFs(createTestFs(t))

	exp := createTestExperiment(3, model.Presentation{ShowTime: 10 * time.Second})
	if err := m.InitializeExperiment(context.Background(), exp); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run, err := m.Run(ctx, PresenterFuncs{
		ShowFunc: func(context.Context, model.Exhibition, *Stimulus) error {
			cancel()
			return nil
		},
	})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Run() error = %v, want ErrAborted", err)
	}
	if run == nil || run.Completed {
		t.Fatalf("run = %+v, want partial run", run)
	}
	if len(run.Onsets()) != 1 {
		t.Errorf("got %d onsets, want 1", len(run.Onsets()))
	}
	if shown, _ := m.GetProgress(); shown != 0 {
		t.Errorf("shown = %d, want 0", shown)
	}
	if m.LastRun() != run {
		t.Error("aborted run should still be kept for the report")
	}
}

func TestManager_SaveReport(t *testing.T) {
	fs := createTestFs(t)
	m := NewManager(createTestSettings(), nil).WithFs(fs)

	if _, err := m.SaveReport(context.Background()); !errors.Is(err, ErrNoRun) {
		t.Errorf("SaveReport() before run error = %v, want ErrNoRun", err)
	}

	if err := m.Initialize(context.Background(), "/stim/faces.yaml"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Run(context.Background(), PresenterFuncs{}); err != nil {
		t.Fatal(err)
	}

	path, err := m.SaveReport(context.Background())
	if err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if !strings.HasPrefix(path, "/out/faces_") || !strings.HasSuffix(path, ".csv") {
		t.Errorf("report path = %q", path)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 9 {
		t.Errorf("report has %d lines, want header + 8 events", len(lines))
	}

	archive := strings.TrimSuffix(path, ".csv") + ".experiment.yaml"
	copied, err := afero.ReadFile(fs, archive)
	if err != nil {
		t.Fatalf("experiment not archived: %v", err)
	}
	if string(copied) != experimentYAML {
		t.Error("archived experiment differs from the loaded file")
	}
}

func TestManager_SaveReportWithoutArchive(t *testing.T) {
	fs := createTestFs(t)
	s := createTestSettings()
	s.ArchiveExperiment = false
	s.ReportFormat = "json"
	m := NewManager(s, nil).WithFs(fs)

	if err := m.Initialize(context.Background(), "/stim/faces.yaml"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Run(context.Background(), PresenterFuncs{}); err != nil {
		t.Fatal(err)
	}
	path, err := m.SaveReport(context.Background())
	if err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if !strings.HasSuffix(path, ".json") {
		t.Errorf("report path = %q, want .json", path)
	}

	entries, err := afero.ReadDir(fs, "/out")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("output dir has %d files, want only the report", len(entries))
	}
}

func TestEventLog(t *testing.T) {
	start := time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)
	log := NewEventLog(start)

	g := &model.Group{Name: "happy"}
	img := &model.Image{File: "happy/a.png", ID: 4}
	ex := model.Exhibition{Slot: 2, Group: g, Image: img}

	log.LogResponse(start.Add(50*time.Millisecond), "space", nil, "")
	log.LogExhibition(100*time.Millisecond, start.Add(103*time.Millisecond), model.EventOnset, ex, "/stim/happy/a.png")
	log.LogResponse(start.Add(250*time.Millisecond), "space", &ex, "/stim/happy/a.png")

	if log.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", log.Len())
	}
	events := log.Events()

	tests := []struct {
		name     string
		event    model.Event
		intended int64
		actual   int64
		slot     int
		imageID  int
	}{
		{"response before first exhibition", events[0], 50, 50, -1, 0},
		{"onset", events[1], 100, 103, 2, 4},
		{"response during exhibition", events[2], 250, 250, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.event
			if e.IntendedMS != tt.intended || e.ActualMS != tt.actual {
				t.Errorf("times = %d/%d, want %d/%d", e.IntendedMS, e.ActualMS, tt.intended, tt.actual)
			}
			if e.Slot != tt.slot || e.ImageID != tt.imageID {
				t.Errorf("slot/image = %d/%d, want %d/%d", e.Slot, e.ImageID, tt.slot, tt.imageID)
			}
		})
	}

	events[0].Label = "changed"
	if log.Events()[0].Label != "space" {
		t.Error("Events() should return a copy")
	}
}
