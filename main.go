package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tischda/macrokeys/internal/access"
	"github.com/tischda/macrokeys/internal/app"
	"github.com/tischda/macrokeys/internal/control"
	"github.com/tischda/macrokeys/internal/hook"
	"github.com/tischda/macrokeys/internal/hook/gohook"
	"github.com/tischda/macrokeys/internal/keys"
	"github.com/tischda/macrokeys/internal/macro"
	"github.com/tischda/macrokeys/internal/picker"
	"github.com/tischda/macrokeys/internal/player"
	"github.com/tischda/macrokeys/internal/synth"
	"github.com/tischda/macrokeys/internal/synth/robotgo"
)

// https://goreleaser.com/cookbooks/using-main.version/
var (
	name    = "macrokeys"
	version = "dev"
	date    string
	commit  string
)

// flags shared by all commands
type options struct {
	configPath string
	logPath    string
	logLevel   string
}

// session is the loaded configuration and logger of one command.
type session struct {
	cfg      Config
	log      *zap.Logger
	closeLog func()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   name,
		Short: "Record-free macro player bound to global hotkeys",
		Long: `Plays macros (sequences of clicks, shortcuts, keystrokes, typed text and waits)
when their global hotkey is pressed. Macros live in a JSON store that is reloaded
when it changes on disk. The emergency stop hotkey (F12 by default) cancels any
running playback.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.config/macrokeys/config.toml, or $"+configEnvVar+")")
	root.PersistentFlags().StringVar(&opts.logPath, "log", "", "log file (default stdout)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(opts),
		newPlayCmd(opts),
		newListCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newKeysCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the config and builds the logger. Flags override the file.
func (o *options) setup() (*session, error) {
	path := resolveConfigPath(o.configPath)
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if o.logPath != "" {
		cfg.Log.Path = expandPath(o.logPath)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	log, closeLog, err := setupLogging(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	log.Debug("configuration loaded", zap.String("path", path), zap.String("store", cfg.Store.Path))
	return &session{cfg: cfg, log: log, closeLog: closeLog}, nil
}

// controller opens the store behind an engine driving actions.
func (s *session) controller(actions player.Actions, gate player.Gate, pick app.Picker) *app.Controller {
	engine := player.New(actions, gate, s.log)
	ctl := app.New(macro.NewStore(s.cfg.Store.Path, s.log), engine, pick, s.cfg.stopBinding(), s.log)
	ctl.Load()
	return ctl
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the hotkey daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.setup()
			if err != nil {
				return err
			}
			defer s.closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, s)
		},
	}
}

// runDaemon wires the global hook, hotkeys, store watcher and control
// server and blocks until ctx is done or one of them fails.
func runDaemon(ctx context.Context, s *session) error {
	log := s.log
	log.Info("starting macro daemon", zap.String("version", version))

	poster, err := newPoster(s.cfg.Playback, log)
	if err != nil {
		return err
	}
	gate := access.New(log)
	if !gate.Granted() {
		log.Warn("input permission not granted, requesting it")
		gate.Request()
	}

	hub := hook.NewHub()
	pick := picker.New(hub, robotgo.DisplayBounds, log)
	ctl := s.controller(synth.New(poster), gate, pick)
	engine := ctl.Engine()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gohook.Run(ctx, hub, log) })
	g.Go(func() error { return ctl.Hotkeys().Run(ctx, newListener(hub, log)) })
	g.Go(func() error {
		if !gate.Granted() && gate.Poll(ctx, access.PollInterval) {
			log.Info("input permission granted")
		}
		return nil
	})
	g.Go(func() error {
		logStatus(ctx, engine, log)
		return nil
	})

	if s.cfg.Store.Watch {
		watcher, err := startStoreWatcher(s.cfg.Store.Path, func() {
			if _, err := ctl.Reload(); err != nil {
				log.Error("store reload failed", zap.Error(err))
			}
		}, log)
		if err != nil {
			log.Warn("store watcher disabled", zap.Error(err))
		} else {
			g.Go(func() error {
				<-ctx.Done()
				return watcher.Close()
			})
		}
	}

	if addr := s.cfg.Control.Listen; addr != "" {
		g.Go(func() error { return control.New(ctl, log).Serve(ctx, addr) })
	}

	err = g.Wait()
	ctl.Close()
	log.Info("exiting")
	return err
}

// logStatus logs every status text change of the engine until ctx is done.
func logStatus(ctx context.Context, engine *player.Engine, log *zap.Logger) {
	states, cancel := engine.Subscribe()
	defer cancel()
	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-states:
			if st.Status != last {
				log.Info("status", zap.String("status", st.Status), zap.Stringer("phase", st.Phase))
				last = st.Status
			}
		}
	}
}

func newPlayCmd(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "play <id|name>",
		Short: "Play one macro in the foreground",
		Long: `Plays the macro with the given id or name and waits for it to finish.
Ctrl+C or the stop hotkey cancels the playback. With --dry-run the synthesized
events are printed instead of posted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.setup()
			if err != nil {
				return err
			}
			defer s.closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return playMacro(ctx, s, args[0], dryRun, cmd)
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print events instead of posting them")
	return cmd
}

func playMacro(ctx context.Context, s *session, ref string, dryRun bool, cmd *cobra.Command) error {
	var (
		actions player.Actions
		gate    player.Gate
	)
	if dryRun {
		out := cmd.OutOrStdout()
		actions = synth.New(&synth.Recorder{OnEvent: func(e synth.Event) {
			fmt.Fprintln(out, e) //nolint:errcheck
		}})
	} else {
		poster, err := newPoster(s.cfg.Playback, s.log)
		if err != nil {
			return err
		}
		actions = synth.New(poster)
		gate = access.New(s.log)
	}

	ctl := s.controller(actions, gate, nil)
	m, err := ctl.Find(ref)
	if err != nil {
		return err
	}
	engine := ctl.Engine()
	if !engine.Play(m) {
		if len(m.Steps) == 0 {
			return fmt.Errorf("macro %q has no steps", m.Name)
		}
		return errors.New(engine.State().Status)
	}

	g, gctx := errgroup.WithContext(ctx)
	if !dryRun {
		hub := hook.NewHub()
		g.Go(func() error { return gohook.Run(gctx, hub, s.log) })
		g.Go(func() error { return ctl.Hotkeys().Run(gctx, newListener(hub, s.log)) })
	}
	g.Go(func() error {
		select {
		case <-engine.Done():
		case <-gctx.Done():
			engine.Stop()
			<-engine.Done()
		}
		return errDone
	})
	if err := g.Wait(); err != nil && !errors.Is(err, errDone) {
		return err
	}
	return nil
}

// errDone ends the playback errgroup once the run has exited.
var errDone = errors.New("playback done")

func newListCmd(opts *options) *cobra.Command {
	var steps bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored macros",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.setup()
			if err != nil {
				return err
			}
			defer s.closeLog()

			ctl := s.controller(synth.New(&synth.Recorder{}), nil, nil)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tHOTKEY\tREPEAT\tSTEPS") //nolint:errcheck
			for _, m := range ctl.Macros() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", m.ID, m.Name, m.Hotkey, m.RepeatText(), len(m.Steps)) //nolint:errcheck
				if !steps {
					continue
				}
				for i, st := range m.Steps {
					fmt.Fprintf(w, "\t  %d. %s\t\t\t\n", i+1, st.Describe()) //nolint:errcheck
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&steps, "steps", "s", false, "also list the steps of each macro")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Append the macros of a file to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.setup()
			if err != nil {
				return err
			}
			defer s.closeLog()

			ctl := s.controller(synth.New(&synth.Recorder{}), nil, nil)
			n, err := ctl.Import(expandPath(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d macro(s)\n", n) //nolint:errcheck
			return nil
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file> [id|name...]",
		Short: "Write all or the selected macros to a file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.setup()
			if err != nil {
				return err
			}
			defer s.closeLog()

			ctl := s.controller(synth.New(&synth.Recorder{}), nil, nil)
			ids := make([]string, 0, len(args)-1)
			for _, ref := range args[1:] {
				m, err := ctl.Find(ref)
				if err != nil {
					return err
				}
				ids = append(ids, m.ID)
			}
			path := expandPath(args[0])
			if !ctl.Export(path, ids...) {
				return fmt.Errorf("export to %s failed", path)
			}
			return nil
		},
	}
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the key and modifier names accepted in hotkeys and steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(keys.Names(), "\n"))
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s, built on %s (commit: %s)\n", name, version, date, commit) //nolint:errcheck
		},
	}
}
