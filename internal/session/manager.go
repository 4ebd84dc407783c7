package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/stimulus/internal/config"
	"github.com/handiism/stimulus/internal/experiment"
	ioutils "github.com/handiism/stimulus/internal/io"
	"github.com/handiism/stimulus/internal/model"
	"github.com/handiism/stimulus/internal/report"
	"github.com/handiism/stimulus/internal/scheduler"
)

var (
	// ErrNotInitialized is returned when a run is requested before an
	// experiment was loaded.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrAlreadyRunning is returned by Run while another run is in progress.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrAborted is returned by Run when its context is cancelled. The
	// partial run is still returned and can be saved.
	ErrAborted = errors.New("run aborted")

	// ErrNoRun is returned by SaveReport before any run finished.
	ErrNoRun = errors.New("no run to report")
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a session progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

type response struct {
	key string
	at  time.Time
}

// Manager coordinates loading, presenting and reporting one experiment.
type Manager struct {
	settings  *config.Settings
	fs        afero.Fs
	images    *ioutils.ImageService
	reports   *report.Writer
	reportCfg *model.ReportConfig

	exp     *model.Experiment
	seed    uint64
	stimuli map[int]*Stimulus
	missing int

	responses chan response
	running   atomic.Bool
	shown     atomic.Int32
	total     atomic.Int32
	lastRun   *model.Run

	onProgress func(ProgressEvent)
	mu         sync.RWMutex
}

// NewManager creates a new session Manager reading from the OS filesystem.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent)) *Manager {
	reportCfg := settings.ToReportConfig()
	fs := afero.NewOsFs()

	return &Manager{
		settings:   settings,
		fs:         fs,
		images:     ioutils.NewImageService(fs),
		reports:    report.NewWriter(reportCfg.Format),
		reportCfg:  reportCfg,
		responses:  make(chan response, 64),
		onProgress: onProgress,
	}
}

// WithFs replaces the filesystem used for experiments, stimuli and reports.
func (m *Manager) WithFs(fs afero.Fs) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fs = fs
	m.images = ioutils.NewImageService(fs)
	return m
}

// Initialize loads the experiment file at path and prepares it for a run.
func (m *Manager) Initialize(ctx context.Context, path string) error {
	m.progress(ProgressEvent{Message: fmt.Sprintf("Loading experiment: %s", path), Level: LevelVerbose})

	exp, err := experiment.Load(m.fs, path)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error loading %s: %v", path, err), Level: LevelError})
		return err
	}
	return m.InitializeExperiment(ctx, exp)
}

// InitializeExperiment validates exp, builds its schedule and preloads its
// stimuli concurrently.
//
// Unreadable image files are reported as warnings and shown as missing,
// unless StrictFiles is set, in which case the first one fails the call.
func (m *Manager) InitializeExperiment(ctx context.Context, exp *model.Experiment) error {
	if m.running.Load() {
		return ErrAlreadyRunning
	}
	if m.settings.StimuliDir != "" {
		exp.BaseDir = m.settings.StimuliDir
	}

	if err := experiment.Validate(exp); err != nil {
		m.progress(ProgressEvent{Message: err.Error(), Level: LevelError})
		return err
	}

	var opts []scheduler.Option
	if m.settings.Seed != 0 {
		opts = append(opts, scheduler.WithSeed(m.settings.Seed))
	}
	sched, err := scheduler.New(exp.Config, opts...)
	if err != nil {
		m.progress(ProgressEvent{Message: err.Error(), Level: LevelError})
		return err
	}

	stimuli, missing, err := m.preload(ctx, exp)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error preloading stimuli: %v", err), Level: LevelError})
		return err
	}

	m.mu.Lock()
	m.exp = exp
	m.seed = sched.Seed()
	m.stimuli = stimuli
	m.missing = missing
	m.lastRun = nil
	m.mu.Unlock()
	m.shown.Store(0)
	m.total.Store(int32(exp.Config.AmountOfExhibitions))

	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Loaded experiment %s: %d groups, %d images, %d exhibitions (seed %d)",
			exp.Name, len(exp.Config.Groups), exp.Config.ImageCount(), exp.Config.AmountOfExhibitions, m.seed),
		Level: LevelInfo,
	})
	if missing > 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("%d image files could not be read", missing), Level: LevelWarning})
	}
	return nil
}

func (m *Manager) preload(ctx context.Context, exp *model.Experiment) (map[int]*Stimulus, int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.PreloadLimit())

	var (
		mu      sync.Mutex
		stimuli = make(map[int]*Stimulus, exp.Config.ImageCount())
		missing int
	)

	for _, img := range exp.Images() {
		g.Go(func() error {
			stim, err := m.loadStimulus(ctx, exp, img)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if m.settings.StrictFiles {
					return fmt.Errorf("image %s: %w", img, err)
				}
				m.progress(ProgressEvent{Message: fmt.Sprintf("Cannot read %s: %v", stim.Path, err), Level: LevelWarning})
			} else {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Preloaded %s", stim.Info), Level: LevelVerbose})
			}

			mu.Lock()
			stimuli[img.ID] = stim
			if stim.Missing {
				missing++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return stimuli, missing, nil
}

// loadStimulus always returns a Stimulus; on error it is marked Missing.
func (m *Manager) loadStimulus(ctx context.Context, exp *model.Experiment, img *model.Image) (*Stimulus, error) {
	stim := &Stimulus{Image: img, Path: exp.ResolvePath(img), Missing: true}

	info, err := m.images.Probe(ctx, stim.Path)
	if err != nil {
		return stim, err
	}
	stim.Info = info

	if m.settings.PreloadPixels {
		pixels, _, err := m.images.Load(ctx, stim.Path)
		if err != nil {
			return stim, err
		}
		if m.settings.FitToScreen {
			pixels = m.images.Fit(pixels, m.settings.ScreenWidth, m.settings.ScreenHeight)
		}
		stim.Pixels = pixels
	}

	stim.Missing = false
	return stim, nil
}

// Run presents every exhibition of the loaded experiment through p.
//
// Each slot shows an image for the configured show time, clears it and
// waits the interval time; no interval follows the last image. With
// skip-on-interaction a response ends the current image early and the
// following slots start from that moment. Onsets, offsets and responses are
// logged with their intended and actual times.
//
// Cancelling ctx stops the run; the partial run is returned with an error
// wrapping ErrAborted. A scheduler error (ErrExhaustion) ends the run the
// same way with that error.
func (m *Manager) Run(ctx context.Context, p Presenter) (*model.Run, error) {
	m.mu.RLock()
	exp, seed, stimuli := m.exp, m.seed, m.stimuli
	m.mu.RUnlock()
	if exp == nil {
		return nil, ErrNotInitialized
	}
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer m.running.Store(false)

	sched, err := scheduler.New(exp.Config, scheduler.WithSeed(seed))
	if err != nil {
		return nil, err
	}

	m.drainResponses()
	m.shown.Store(0)

	pres := exp.Presentation
	log := NewEventLog(time.Now())
	run := &model.Run{
		Experiment:   exp.Name,
		Seed:         seed,
		Started:      log.Start(),
		Presentation: pres,
	}
	finish := func(completed bool) *model.Run {
		run.Finished = time.Now()
		run.Completed = completed
		run.Events = log.Events()
		m.mu.Lock()
		m.lastRun = run
		m.mu.Unlock()
		return run
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Starting %s (seed %d)", exp.Name, seed), Level: LevelInfo})

	var (
		next     time.Duration
		prev     *model.Exhibition
		prevFile string
	)
	for ex, err := range sched.All() {
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Run stopped at slot %d: %v", m.shown.Load()+1, err), Level: LevelError})
			return finish(false), err
		}

		stim := stimuli[ex.Image.ID]
		file := exp.ResolvePath(ex.Image)

		// Interval of the previous slot; responses still belong to it.
		if werr := m.waitUntil(ctx, log, next, false, prev, prevFile); werr != nil {
			return m.abort(finish, werr)
		}

		onset := time.Now()
		if serr := p.Show(ctx, ex, stim); serr != nil {
			return finish(false), fmt.Errorf("show %s: %w", ex, serr)
		}
		log.LogExhibition(next, onset, model.EventOnset, ex, file)
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Showing %d/%d: %s / %s", ex.Slot+1, exp.Config.AmountOfExhibitions, ex.Group.Name, ex.Image.Name()),
			Level:   LevelVerbose,
		})

		intendedOff := next + pres.ShowTime
		werr := m.waitUntil(ctx, log, intendedOff, pres.SkipOnInteraction, &ex, file)
		skipped := errors.Is(werr, errSkipped)
		if werr != nil && !skipped {
			return m.abort(finish, werr)
		}

		offset := time.Now()
		if cerr := p.Clear(ctx); cerr != nil {
			return finish(false), fmt.Errorf("clear %s: %w", ex, cerr)
		}
		if skipped {
			intendedOff = offset.Sub(log.Start())
		}
		log.LogExhibition(intendedOff, offset, model.EventOffset, ex, file)
		m.shown.Add(1)

		next = intendedOff + pres.IntervalTime
		prev, prevFile = &ex, file
		if sched.Remaining() == 0 {
			break
		}
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s: %d exhibitions", exp.Name, m.shown.Load()), Level: LevelSuccess})
	return finish(true), nil
}

var errSkipped = errors.New("skipped")

// waitUntil blocks until deadline (measured from the log start), logging
// every response that arrives meanwhile against ex. With skip set the first
// response ends the wait with errSkipped.
func (m *Manager) waitUntil(ctx context.Context, log *EventLog, deadline time.Duration, skip bool, ex *model.Exhibition, file string) error {
	timer := time.NewTimer(time.Until(log.Start().Add(deadline)))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case r := <-m.responses:
			log.LogResponse(r.at, r.key, ex, file)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Response: %s", r.key), Level: LevelVerbose})
			if skip {
				return errSkipped
			}
		}
	}
}

func (m *Manager) abort(finish func(bool) *model.Run, err error) (*model.Run, error) {
	run := finish(false)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Run aborted after %d exhibitions", m.shown.Load()), Level: LevelWarning})
	return run, fmt.Errorf("%w: %v", ErrAborted, err)
}

func (m *Manager) drainResponses() {
	for {
		select {
		case <-m.responses:
		default:
			return
		}
	}
}

// Respond records an interaction with key during a run. It reports whether
// the key was accepted: keys are dropped when no run is in progress, and
// keys other than the configured interaction key are ignored when one is
// set. Respond never blocks.
func (m *Manager) Respond(key string) bool {
	if !m.running.Load() {
		return false
	}
	m.mu.RLock()
	want := m.exp.Presentation.InteractionKey
	m.mu.RUnlock()
	if want != "" && !strings.EqualFold(strings.TrimSpace(key), want) {
		return false
	}

	select {
	case m.responses <- response{key: key, at: time.Now()}:
		return true
	default:
		return false
	}
}

// Plan returns the exhibitions the next Run will show.
func (m *Manager) Plan() ([]model.Exhibition, error) {
	m.mu.RLock()
	exp, seed := m.exp, m.seed
	m.mu.RUnlock()
	if exp == nil {
		return nil, ErrNotInitialized
	}

	sched, err := scheduler.New(exp.Config, scheduler.WithSeed(seed))
	if err != nil {
		return nil, err
	}
	return sched.Collect()
}

// SaveReport writes the last run to the output directory and returns the
// report path. With ArchiveExperiment the experiment file is copied next
// to it.
func (m *Manager) SaveReport(ctx context.Context) (string, error) {
	m.mu.RLock()
	run, exp := m.lastRun, m.exp
	m.mu.RUnlock()
	if run == nil {
		return "", ErrNoRun
	}

	path := m.reportCfg.ReportPath(run.Experiment, run.Seed, run.Started)
	data, err := m.reports.Render(run)
	if err != nil {
		return "", err
	}
	if err := ioutils.WriteFile(ctx, m.fs, path, data); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error saving report: %v", err), Level: LevelError})
		return "", err
	}

	if m.settings.ArchiveExperiment && exp != nil && exp.Path != "" {
		archive := strings.TrimSuffix(path, filepath.Ext(path)) + ".experiment" + filepath.Ext(exp.Path)
		if err := ioutils.CopyFile(ctx, m.fs, exp.Path, archive); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error archiving experiment: %v", err), Level: LevelWarning})
		}
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Saved report to %s", path), Level: LevelSuccess})
	return path, nil
}

// GetProgress returns how many exhibitions of the current run were shown.
func (m *Manager) GetProgress() (shown, total int) {
	return int(m.shown.Load()), int(m.total.Load())
}

// Running reports whether a run is in progress.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// Experiment returns the loaded experiment, or nil.
func (m *Manager) Experiment() *model.Experiment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exp
}

// Seed returns the seed of the loaded schedule.
func (m *Manager) Seed() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seed
}

// Stimulus returns the prepared stimulus of an image id, or nil.
func (m *Manager) Stimulus(id int) *Stimulus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stimuli[id]
}

// MissingCount returns how many images could not be read.
func (m *Manager) MissingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.missing
}

// LastRun returns the most recent run, or nil.
func (m *Manager) LastRun() *model.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRun
}

// GetGroupNames returns a summary line for every configured group.
func (m *Manager) GetGroupNames() []string {
	exp := m.Experiment()
	if exp == nil {
		return nil
	}
	names := make([]string, len(exp.Config.Groups))
	for i, g := range exp.Config.Groups {
		names[i] = g.String()
	}
	return names
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
