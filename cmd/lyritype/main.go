// Package main provides the CLI entrypoint for lyritype.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/lyritype/internal/audio"
	"github.com/verte-zerg/lyritype/internal/config"
	"github.com/verte-zerg/lyritype/internal/engine"
	"github.com/verte-zerg/lyritype/internal/lyrics"
	"github.com/verte-zerg/lyritype/internal/model"
	"github.com/verte-zerg/lyritype/internal/scoring"
	"github.com/verte-zerg/lyritype/internal/stats"
	"github.com/verte-zerg/lyritype/internal/statsui"
	"github.com/verte-zerg/lyritype/internal/store"
	"github.com/verte-zerg/lyritype/internal/tui"
)

const (
	defaultDifficulty  = "medium"
	defaultPolicy      = "normal"
	defaultVolume      = 1.0
	defaultRate        = 1.0
	defaultCurveWindow = 20
	plotHeight         = 8
	maxTitleWidth      = 40
	maxLineWidth       = 48
)

var (
	playAudio      string
	playDifficulty string
	playPolicy     string
	playOffset     int
	playVolume     float64
	playRate       float64
	playEncoding   string

	statsSong        string
	statsDifficulty  string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsTUI         bool

	scoresSong string

	inspectEncoding string
	inspectLastRun  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lyritype [flags] LYRICS_FILE",
		Short:         "Type along to timed lyrics",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.ExactArgs(1),
		RunE:          runPlayCmd,
	}

	rootCmd.Flags().StringVar(&playAudio, "audio", "", "audio track (mp3, ogg, wav) used for the song clock")
	rootCmd.Flags().StringVar(&playDifficulty, "difficulty", defaultDifficulty, "timing difficulty (easy, medium, hard)")
	rootCmd.Flags().StringVar(&playPolicy, "policy", defaultPolicy, "input policy (normal, strict, assist)")
	rootCmd.Flags().IntVar(&playOffset, "offset", 0, "lyric offset in ms, clamped to -2000..2000")
	rootCmd.Flags().Float64Var(&playVolume, "volume", defaultVolume, "playback volume (0-1)")
	rootCmd.Flags().Float64Var(&playRate, "rate", defaultRate, "playback rate")
	rootCmd.Flags().StringVar(&playEncoding, "encoding", "", "lyric file encoding (default: utf-8)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newScoresCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runPlayCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "difficulty", &playDifficulty, fileCfg.Play.Difficulty)
	applyStringConfig(cmd, "policy", &playPolicy, fileCfg.Play.Policy)
	applyIntConfig(cmd, "offset", &playOffset, fileCfg.Play.OffsetMs)
	applyFloatConfig(cmd, "volume", &playVolume, fileCfg.Play.Volume)
	applyFloatConfig(cmd, "rate", &playRate, fileCfg.Play.Rate)
	applyStringConfig(cmd, "encoding", &playEncoding, fileCfg.Play.Encoding)

	cfg := model.Config{
		LyricsPath: args[0],
		AudioPath:  playAudio,
		Encoding:   playEncoding,
		Difficulty: playDifficulty,
		Policy:     playPolicy,
		OffsetMs:   playOffset,
		Volume:     playVolume,
		Rate:       playRate,
	}

	if err := validateConfig(cfg); err != nil {
		return err
	}
	difficulty, err := scoring.ParseDifficulty(cfg.Difficulty)
	if err != nil {
		return err
	}
	policy, err := engine.ParsePolicy(cfg.Policy)
	if err != nil {
		return err
	}

	tl, err := loadTimeline(cfg.LyricsPath, cfg.Encoding)
	if err != nil {
		return err
	}
	if tl.Len() == 0 {
		return fmt.Errorf("no timed lines found in %s", cfg.LyricsPath)
	}
	song := songFor(tl, cfg.LyricsPath)

	durationMs, probeErr := resolveDuration(cfg.AudioPath, tl, audio.ProbeDuration)
	clock := audio.NewClock(durationMs, nil)
	if err := clock.SetRate(cfg.Rate); err != nil {
		return fmt.Errorf("failed to set rate: %w", err)
	}
	if err := clock.SetVolume(cfg.Volume); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}

	if !isInteractive() {
		return fmt.Errorf("play requires an interactive terminal")
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	var best *model.ScoreRecord
	if rec, ok, err := st.BestScore(context.Background(), song.ID, string(difficulty)); err != nil {
		logErrf("failed to load high score: %v\n", err)
	} else if ok {
		best = &rec
	}

	session := engine.New(engine.Options{
		Difficulty: difficulty,
		Policy:     policy,
		OffsetMs:   combinedOffset(cfg.OffsetMs, tl.Meta().OffsetMs),
		Store:      st,
		Recorder:   st,
	})
	defer session.Close()
	session.Load(song)
	session.AttachAudio(clock)
	if probeErr != nil {
		session.AudioFailed(probeErr)
	} else {
		session.AudioLoaded(durationMs)
	}

	ui := tui.NewModel(session, clock, tl, best)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	for _, msg := range ui.Errors() {
		logErrln(msg)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect LYRICS_FILE",
		Short: "Show the parsed timeline of a lyric file",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspectCmd,
	}
	cmd.Flags().StringVar(&inspectEncoding, "encoding", "", "lyric file encoding (default: utf-8)")
	cmd.Flags().BoolVar(&inspectLastRun, "last-run", false, "show line judgments of the most recent session")
	return cmd
}

func runInspectCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "encoding", &inspectEncoding, fileCfg.Play.Encoding)

	tl, err := loadTimeline(args[0], inspectEncoding)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderTimeline(out, tl, maxLineWidth); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !inspectLastRun {
		return nil
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	return renderLastRun(context.Background(), out, st, songFor(tl, args[0]).ID)
}

func renderLastRun(ctx context.Context, w io.Writer, st *store.Store, songID string) error {
	sessions, err := st.ListSessions(ctx, model.StatsConfig{SongID: songID, Last: 1})
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions recorded for this song.")
		return err
	}
	last := sessions[0]
	lines, err := st.ListSessionLines(ctx, last.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session lines: %w", err)
	}
	header := fmt.Sprintf("Last run %s (%s, %s): score %d, max combo %d",
		last.RunID, last.Difficulty, last.EndedAt.Local().Format("2006-01-02 15:04"), last.Score, last.MaxCombo)
	if _, err := fmt.Fprintln(w, header); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderJudgments(w, lines, maxLineWidth/2); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Show high scores",
		Args:  cobra.NoArgs,
		RunE:  runScoresCmd,
	}
	cmd.Flags().StringVar(&scoresSong, "song", "", "song name or id filter")
	return cmd
}

func runScoresCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	scores, err := st.ListHighScores(context.Background(), strings.TrimSpace(scoresSong))
	if err != nil {
		return fmt.Errorf("failed to load high scores: %w", err)
	}
	if err := stats.RenderHighScores(cmd.OutOrStdout(), scores, maxTitleWidth); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSong, "song", "", "song name or id filter")
	cmd.Flags().StringVar(&statsDifficulty, "difficulty", "", "difficulty filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsTUI, "tui", false, "browse stats interactively")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.Window)

	cfg, err := buildStatsConfig(statsSong, statsDifficulty, statsSince, statsLast, statsCurveWindow)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsTUI {
		if !isInteractive() {
			return fmt.Errorf("--tui requires an interactive terminal")
		}
		ui := statsui.NewModel(statsui.StoreLoader(st), cfg)
		program := tea.NewProgram(ui, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := renderStatsReport(out, report, cfg.CurveWindow, stats.TerminalWidth(), stats.UseColor(out)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func renderStatsReport(w io.Writer, report stats.Report, window, width int, useColor bool) error {
	if err := stats.RenderSummary(w, report.Sessions); err != nil {
		return err
	}
	if len(report.Sessions) == 0 {
		return nil
	}
	scores := make([]float64, len(report.Sessions))
	for i, s := range report.Sessions {
		scores[i] = float64(s.Score)
	}
	trend := stats.Sparkline(stats.MovingAverage(scores, window))
	if _, err := fmt.Fprintf(w, "Score trend (window %d): %s\n\n", window, trend); err != nil {
		return err
	}
	if err := stats.RenderCurves(w, report.Sessions, window, width, plotHeight, useColor); err != nil {
		return err
	}
	if err := stats.RenderVerdicts(w, "Verdicts", report.VerdictsAll); err != nil {
		return err
	}
	if err := stats.RenderVerdicts(w, fmt.Sprintf("Verdicts (last %d)", len(report.WindowSessionIDs)), report.VerdictsWindow); err != nil {
		return err
	}
	if err := stats.RenderSessions(w, report.Sessions, maxTitleWidth); err != nil {
		return err
	}
	return stats.RenderHighScores(w, report.HighScores, maxTitleWidth)
}

func buildStatsConfig(song, difficulty, since string, last, window int) (model.StatsConfig, error) {
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if window < 1 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be >= 1")
	}
	difficulty = strings.TrimSpace(difficulty)
	if difficulty != "" {
		d, err := scoring.ParseDifficulty(difficulty)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --difficulty value: %w", err)
		}
		difficulty = string(d)
	}
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	return model.StatsConfig{
		SongID:      strings.TrimSpace(song),
		Difficulty:  difficulty,
		Since:       sinceTime,
		Last:        last,
		CurveWindow: window,
	}, nil
}

func loadTimeline(path, encoding string) (*lyrics.Timeline, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lyrics: %w", err)
	}
	tl, err := lyrics.ParseBytes(raw, encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lyrics: %w", err)
	}
	return tl, nil
}

func songFor(tl *lyrics.Timeline, path string) engine.Song {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	meta := tl.Meta()
	return engine.Song{
		ID:       lyrics.SongID(meta, key),
		Name:     lyrics.DisplayName(meta, name),
		Timeline: tl,
	}
}

// resolveDuration returns the clock length for a session. Without a track, or
// when the track cannot be read, the timeline decides.
func resolveDuration(audioPath string, tl *lyrics.Timeline, probe func(string) (int64, error)) (int64, error) {
	silent := max(tl.EndMs(), tl.Meta().DurationMs)
	if audioPath == "" {
		return silent, nil
	}
	ms, err := probe(audioPath)
	if err != nil {
		return silent, err
	}
	if ms <= 0 {
		return silent, fmt.Errorf("audio track %s has no duration", audioPath)
	}
	return ms, nil
}

func combinedOffset(flagMs int, metaMs int64) int64 {
	return engine.ClampOffset(int64(flagMs) + metaMs)
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# lyritype configuration
# Uncomment a value to enable it. CLI flags override config values.

[play]
# difficulty = %q     # easy, medium or hard
# policy = %q         # normal, strict or assist
# offset-ms = 0             # Lyric offset in ms (-2000 to 2000)
# volume = %.1f             # Playback volume (0-1)
# rate = %.1f               # Playback rate (%.2f-%.0f)
# encoding = "utf-8"        # Lyric file encoding, e.g. "shift_jis" or "windows-1252"

[stats]
# window = %d               # Moving average window for curves
`,
		defaultDifficulty,
		defaultPolicy,
		defaultVolume,
		defaultRate,
		audio.MinRate,
		audio.MaxRate,
		defaultCurveWindow,
	)
}

func validateConfig(cfg model.Config) error {
	if strings.TrimSpace(cfg.LyricsPath) == "" {
		return fmt.Errorf("lyrics file must not be empty")
	}
	if _, err := scoring.ParseDifficulty(cfg.Difficulty); err != nil {
		return fmt.Errorf("--difficulty must be easy, medium or hard")
	}
	if _, err := engine.ParsePolicy(cfg.Policy); err != nil {
		return fmt.Errorf("--policy must be normal, strict or assist")
	}
	if cfg.Volume < 0 || cfg.Volume > 1 {
		return fmt.Errorf("--volume must be between 0 and 1")
	}
	if cfg.Rate < audio.MinRate || cfg.Rate > audio.MaxRate {
		return fmt.Errorf("--rate must be between %.2f and %.0f", audio.MinRate, audio.MaxRate)
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
