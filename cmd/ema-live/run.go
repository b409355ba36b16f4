package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	live "github.com/koscakluka/ema-live/core"
	"github.com/koscakluka/ema-live/internal/config"
	"github.com/koscakluka/ema-live/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const shutdownTimeout = 3 * time.Second

type runOptions struct {
	configPath     string
	logFile        string
	plain          bool
	audioBackend   string
	saveResumption bool
}

func (o *runOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&o.configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&o.logFile, "log-file", filepath.Join(os.TempDir(), "ema-live.log"), "log file used while the terminal UI is active")
	flags.BoolVar(&o.plain, "plain", false, "print transcripts instead of starting the terminal UI")
	flags.StringVar(&o.audioBackend, "audio", "", "audio backend: miniaudio, portaudio or none (overrides the config)")
	flags.BoolVar(&o.saveResumption, "save-resumption", false, "write the latest resumption handle back to --config on exit")
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a live session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runSession(ctx, opts, cmd.OutOrStdout())
		},
	}
	opts.addFlags(cmd.Flags())
	return cmd
}

func runSession(ctx context.Context, opts *runOptions, stdout io.Writer) error {
	cfg, err := config.Loader{}.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.audioBackend != "" {
		cfg.AudioBackend = opts.audioBackend
	}
	if opts.saveResumption && opts.configPath == "" {
		return errors.New("--save-resumption needs --config")
	}

	useTUI := !opts.plain && term.IsTerminal(int(os.Stdout.Fd()))
	logger, closeLog, err := newLogger(cfg, useTUI, opts.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	device, err := openAudio(cfg.AudioBackend)
	if err != nil {
		return err
	}
	if device != nil {
		defer device.Close()
	}

	var program atomic.Pointer[tea.Program]
	managerOpts := []live.ManagerOption{live.WithLogger(logger)}
	if device != nil {
		managerOpts = append(managerOpts, live.WithPlaybackSink(device))
	}
	if useTUI {
		managerOpts = append(managerOpts, live.WithEventHandler(tui.EventHandler(func(msg tea.Msg) {
			if p := program.Load(); p != nil {
				p.Send(msg)
			}
		})))
	} else {
		managerOpts = append(managerOpts, live.WithEventHandler(&transcriptPrinter{out: stdout}))
	}
	sessionConfig, err := cfg.SessionConfig()
	if err != nil {
		return err
	}
	manager := live.NewManager(managerOpts...)
	session := &sessionControl{Manager: manager, ctx: ctx, config: sessionConfig}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	group, groupCtx := errgroup.WithContext(runCtx)
	if device != nil {
		group.Go(func() error {
			return device.Stream(groupCtx, func(pcm []byte) { session.SubmitAudio(pcm) })
		})
	}

	if useTUI {
		p := tea.NewProgram(tui.NewModel(session), tea.WithAltScreen(), tea.WithContext(groupCtx))
		program.Store(p)
		group.Go(func() error {
			// Quitting the UI ends the run.
			defer stop()
			_, err := p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	} else {
		if err := session.Connect(); err != nil {
			stop()
			_ = group.Wait()
			return err
		}
		group.Go(func() error {
			<-groupCtx.Done()
			return nil
		})
	}

	err = group.Wait()

	manager.Disconnect()
	waitForIdle(manager, shutdownTimeout)

	if opts.saveResumption {
		if saveErr := config.SaveResumptionHandle(opts.configPath, manager.ResumptionHandle()); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
	}
	return err
}

type sessionControl struct {
	*live.Manager
	ctx    context.Context
	config live.SessionConfig
	muted  atomic.Bool
}

// SubmitAudio drops captured audio while the microphone is muted.
func (s *sessionControl) SubmitAudio(pcm []byte) bool {
	if s.muted.Load() {
		return false
	}
	return s.Manager.SubmitAudio(pcm)
}

// ToggleMute flips the microphone and returns whether it is now muted.
func (s *sessionControl) ToggleMute() bool {
	for {
		muted := s.muted.Load()
		if s.muted.CompareAndSwap(muted, !muted) {
			return !muted
		}
	}
}

func (s *sessionControl) Muted() bool { return s.muted.Load() }

func (s *sessionControl) Connect() error {
	return s.Manager.Connect(s.ctx, s.config)
}

// Reconnect falls back to a fresh connect when no session was started yet.
func (s *sessionControl) Reconnect() error {
	err := s.Manager.Reconnect(s.ctx)
	if errors.Is(err, live.ErrNoPreviousConfig) {
		return s.Connect()
	}
	return err
}

func newLogger(cfg config.Config, useTUI bool, logFile string) (*slog.Logger, func(), error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	options := &slog.HandlerOptions{Level: level}

	if !useTUI {
		return slog.New(slog.NewTextHandler(os.Stderr, options)), func() {}, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(file, options)), func() { _ = file.Close() }, nil
}

func waitForIdle(manager *live.Manager, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if state := manager.State(); state == live.StateIdle || state == live.StateFailed {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}
