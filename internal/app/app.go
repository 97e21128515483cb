package app

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/aliceagent/alice-display/internal/catalog"
	"github.com/aliceagent/alice-display/internal/conditions"
	"github.com/aliceagent/alice-display/internal/config"
	"github.com/aliceagent/alice-display/internal/display"
	"github.com/aliceagent/alice-display/internal/encryption"
	"github.com/aliceagent/alice-display/internal/fs"
	"github.com/aliceagent/alice-display/internal/history"
	"github.com/aliceagent/alice-display/internal/publish"
)

// Options adjusts how an AliceApp is built. The zero value uses the real
// clock, random run IDs and an unseeded draw.
type Options struct {
	Verbose bool
	Seed    *uint64 // fixes the weighted draw for reproducible runs
	Clock   display.Clock
	IDs     display.IDGenerator
	// ReadOnly opens history without creating or migrating anything on
	// disk. Set it for dry runs and reporting commands.
	ReadOnly bool
}

// AliceApp is the application layer between the CLI and the selection engine.
// It constructs all dependencies from config, exposes high-level operations,
// and releases the history store and log file on Close.
type AliceApp struct {
	cfg      *config.Config
	run      *Run
	logger   display.Logger
	logFile  *os.File
	clock    display.Clock
	loc      *time.Location
	history  display.HistoryStore
	keyring  encryption.Keyring
	settings display.Settings

	records []display.Record
	loaded  bool
}

// NewAliceApp creates a fully wired AliceApp from the given config.
// command identifies the CLI command being run (e.g. "select", "stats").
// The caller must call Close when done.
func NewAliceApp(cfg *config.Config, command string, opts Options) (*AliceApp, error) {
	clock := opts.Clock
	if clock == nil {
		clock = display.RealClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = display.UUIDGenerator{}
	}

	loc, err := cfg.Selection.Location()
	if err != nil {
		return nil, err
	}

	settings, err := selectionSettings(cfg.Selection)
	if err != nil {
		return nil, fmt.Errorf("building selection settings: %w", err)
	}

	run := NewRun(ids.New(), command, clock.Now())
	settings.RunID = run.ID
	if opts.Seed != nil {
		settings.Rand = rand.New(rand.NewPCG(*opts.Seed, *opts.Seed^0x9e3779b97f4a7c15))
	}

	slogger, logFile, err := newLogger(cfg.LogDir, run.ID, opts.Verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	openHistory := history.NewHistoryStoreFromConfig
	if opts.ReadOnly {
		openHistory = history.NewReadOnlyHistoryStoreFromConfig
	}
	hs, err := openHistory(cfg.History, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating history store: %w", err)
	}

	kr, err := encryption.NewKeyringFromConfig(cfg.Encryption)
	if err != nil {
		hs.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating keyring: %w", err)
	}

	logger.Debug("starting", "command", command)

	return &AliceApp{
		cfg:      cfg,
		run:      run,
		logger:   logger,
		logFile:  logFile,
		clock:    clock,
		loc:      loc,
		history:  hs,
		keyring:  kr,
		settings: settings,
	}, nil
}

// selectionSettings converts the [selection] config into engine settings.
func selectionSettings(sc config.SelectionConfig) (display.Settings, error) {
	s := display.DefaultSettings()

	mode, err := display.ParseMatchMode(sc.MatchMode)
	if err != nil {
		return s, err
	}
	s.MatchMode = mode

	chains, ok := display.ChainsByName(sc.Fallbacks)
	if !ok {
		return s, fmt.Errorf("unknown fallback chains: %q", sc.Fallbacks)
	}
	s.Chains = chains.WithOverrides(sc.WeatherFallbacks, sc.TimeFallbacks)

	if len(sc.ActivityPreferences) > 0 {
		table := make(display.ActivityTable, 0, len(sc.ActivityPreferences))
		for _, p := range sc.ActivityPreferences {
			table = append(table, display.ActivityPreference{
				Hours:      display.HourRange{Start: p.Start, End: p.End},
				Activities: slices.Clone(p.Activities),
			})
		}
		s.Activities = table
	}

	if q := sc.QuietHours; q != nil {
		s.QuietHours = display.QuietHours{
			Hours:      display.HourRange{Start: q.Start, End: q.End},
			Activities: slices.Clone(q.Activities),
		}
	}

	if sc.RecencyHours > 0 {
		s.RecencyWindow = time.Duration(sc.RecencyHours) * time.Hour
	}
	s.PreferVerified = sc.PreferVerified
	return s, nil
}

// RunID returns the identifier stamped on this run's logs and history entries.
func (a *AliceApp) RunID() string { return a.run.ID }

// catalogRecords loads the catalog once per app. A sealed catalog is opened
// with the private key, unlocked with the passphrase from the environment.
func (a *AliceApp) catalogRecords() []display.Record {
	if a.loaded {
		return a.records
	}
	a.loaded = true

	opts := []catalog.Option{catalog.WithLogger(a.logger)}

	if a.cfg.Catalog.URLMapPath != "" {
		m, err := catalog.LoadURLMap(a.cfg.Catalog.URLMapPath)
		if err != nil {
			a.logger.Warn("ignoring CDN URL map", "path", a.cfg.Catalog.URLMapPath, "error", err)
		} else {
			opts = append(opts, catalog.WithURLMap(m))
		}
	}

	if catalog.IsSealed(a.cfg.Catalog.Path) {
		dec, err := a.keyring.Unlock(KeyPassphrase())
		if err != nil {
			a.logger.Warn("unlocking catalog key failed", "error", err)
		} else {
			opts = append(opts, catalog.WithDecryptor(dec))
		}
	}

	a.records = catalog.Load(a.cfg.Catalog.Path, opts...)
	return a.records
}

// SelectRequest carries the CLI overrides for one selection. Empty labels
// and a nil Hour are taken from the weather document.
type SelectRequest struct {
	Weather       string
	TimeOfDay     string
	Hour          *int
	DryRun        bool // skip history and output writes
	NoAvoidRecent bool // allow recently shown records on the first pass
}

// SelectResult is what a selection run produced.
type SelectResult struct {
	Selection  *display.Selection
	Conditions conditions.Current
	Hour       int
	Written    []string // output files written, empty on a dry run
}

// Select reads the current conditions, runs the engine and, unless the
// request is a dry run, writes the selected-output and display-control files.
// display.ErrNoSelection is returned when the catalog has no eligible records.
func (a *AliceApp) Select(req SelectRequest) (*SelectResult, error) {
	now := a.clock.Now().In(a.loc)

	defaults := conditions.Current{
		Condition:  a.cfg.Weather.DefaultCondition,
		TimePeriod: a.cfg.Weather.DefaultTimeOfDay,
	}
	cur := conditions.LoadCurrent(a.cfg.Weather.Path, defaults, a.logger)

	hour := now.Hour()
	if cur.Hour != nil {
		hour = *cur.Hour
	}
	if req.Hour != nil {
		hour = *req.Hour
	}

	if req.Weather != "" {
		cur.Condition = req.Weather
	}
	switch {
	case req.TimeOfDay != "":
		cur.TimePeriod = req.TimeOfDay
	case req.Hour != nil:
		cur.TimePeriod = conditions.TimePeriodForHour(hour)
	}

	engine := display.NewEngine(a.catalogRecords(), a.history, a.logger, a.clock, a.settings)
	sel, err := engine.Select(display.Query{
		Weather:     cur.Condition,
		TimeOfDay:   cur.TimePeriod,
		Hour:        display.AtHour(hour),
		AvoidRecent: a.cfg.Selection.AvoidRecent && !req.NoAvoidRecent,
		Persist:     !req.DryRun,
	})
	if err != nil {
		return nil, err
	}

	res := &SelectResult{Selection: sel, Conditions: cur, Hour: hour}
	if req.DryRun {
		a.logger.Info("dry run; skipping writes")
		return res, nil
	}

	if err := publish.WriteSelected(a.cfg.Output.SelectedPath, sel.Record); err != nil {
		return nil, err
	}
	res.Written = append(res.Written, a.cfg.Output.SelectedPath)

	if a.cfg.Output.ControlPath != "" {
		control := publish.NewControl(sel, cur, now, a.run.ID)
		if err := publish.WriteControl(a.cfg.Output.ControlPath, control); err != nil {
			return nil, err
		}
		res.Written = append(res.Written, a.cfg.Output.ControlPath)
	}

	return res, nil
}

// Stats aggregates the catalog and counts records shown inside the recency window.
func (a *AliceApp) Stats() (display.Stats, error) {
	since := a.clock.Now().Add(-a.settings.RecencyWindow)
	recent, err := a.history.RecentIDs(since)
	if err != nil {
		return display.Stats{}, fmt.Errorf("reading selection history: %w", err)
	}
	return display.ComputeStats(a.catalogRecords(), recent), nil
}

// History returns up to limit past selections, newest first.
// A limit of zero or less returns every retained entry.
func (a *AliceApp) History(limit int) ([]display.HistoryEntry, error) {
	entries, err := a.history.Entries()
	if err != nil {
		return nil, fmt.Errorf("reading selection history: %w", err)
	}
	entries = slices.Clone(entries)
	slices.Reverse(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// CatalogReport lists catalog problems that keep records out of ordinary selection.
type CatalogReport struct {
	Total      int
	Eligible   int      // non-holiday records with a resolvable location
	Holiday    int      // holiday-tagged records
	MissingURL []string // keys of non-holiday records with no location
	Untagged   []string // keys of records missing weather or time of day
}

// CheckCatalog loads the catalog and reports records that can never be selected.
func (a *AliceApp) CheckCatalog() *CatalogReport {
	records := a.catalogRecords()
	report := &CatalogReport{Total: len(records)}
	for _, r := range records {
		if strings.TrimSpace(r.Weather) == "" || strings.TrimSpace(r.TimeOfDay) == "" {
			report.Untagged = append(report.Untagged, r.Key())
		}
		switch {
		case r.IsHoliday():
			report.Holiday++
		case !r.HasDisplayURL():
			report.MissingURL = append(report.MissingURL, r.Key())
		default:
			report.Eligible++
		}
	}
	return report
}

// SealCatalog encrypts the catalog at src to dst with the configured public key.
// An empty dst writes next to src with the sealed extension appended.
// It returns the path written.
func (a *AliceApp) SealCatalog(src, dst string) (string, error) {
	p, err := fs.ResolveFile(src)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if dst == "" {
		dst = p + catalog.SealedExt
	}

	f, err := os.Open(p)
	if err != nil {
		return "", fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	var sealed bytes.Buffer
	if err := a.keyring.Seal(f, &sealed); err != nil {
		return "", fmt.Errorf("sealing catalog: %w", err)
	}
	if err := fs.WriteFileAtomic(dst, sealed.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing sealed catalog: %w", err)
	}

	a.logger.Info("sealed catalog", "src", p, "dst", dst)
	return dst, nil
}

// Finish records the outcome of the command for the run log.
func (a *AliceApp) Finish(err error) {
	a.run.Finish(err)
	switch {
	case err == nil:
		a.logger.Debug("finished", "command", a.run.Command, "status", a.run.Status)
	case errors.Is(err, display.ErrNoSelection):
		a.logger.Warn("finished without a selection", "command", a.run.Command)
	default:
		a.logger.Error("finished", "command", a.run.Command, "status", a.run.Status, "error", err)
	}
}

// Close releases the history store and the log file.
func (a *AliceApp) Close() error {
	var firstErr error
	if err := a.history.Close(); err != nil {
		firstErr = fmt.Errorf("closing history: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// SetupKeys generates the catalog key pair named in cfg and returns the
// public key. A non-empty passphrase protects the private key.
func SetupKeys(cfg config.EncryptionConfig, passphrase string) (string, error) {
	kr, err := encryption.NewKeyringFromConfig(cfg)
	if err != nil {
		return "", fmt.Errorf("creating keyring: %w", err)
	}
	if err := kr.Setup(passphrase); err != nil {
		return "", fmt.Errorf("generating keys: %w", err)
	}
	ak, ok := kr.(*encryption.AgeKeyring)
	if !ok {
		return "", nil
	}
	return ak.PublicKey()
}
