// Command mojo-chat is an interactive terminal front end for the live
// session client: it streams each typed line to the model, prints the reply
// as fragments arrive, and can save audio replies as WAV files.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sixtyoneeighty/mojolive/internal/dotenv"
	"github.com/sixtyoneeighty/mojolive/pkg/live/protocol"
	mojo "github.com/sixtyoneeighty/mojolive/sdk"
)

const defaultTurnTimeout = 90 * time.Second

type chatConfig struct {
	BaseURL    string
	Model      string
	Voice      string
	System     string
	Timeout    time.Duration
	TextOnly   bool
	WAVDir     string
	Credential string
	LogLevel   string
}

func parseChatConfig(args []string, getenv func(string) string) (chatConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := chatConfig{}
	fs := flag.NewFlagSet("mojo-chat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BaseURL, "base-url", mojo.DefaultBaseURL, "live endpoint base URL")
	fs.StringVar(&cfg.Model, "model", protocol.DefaultModel, "live model to use")
	fs.StringVar(&cfg.Voice, "voice", mojo.DefaultVoice, "prebuilt voice for audio replies")
	fs.StringVar(&cfg.System, "system", "", "override the default system prompt")
	fs.DurationVar(&cfg.Timeout, "timeout", defaultTurnTimeout, "per-turn timeout (e.g. 90s)")
	fs.BoolVar(&cfg.TextOnly, "text", false, "request text replies instead of audio")
	fs.StringVar(&cfg.WAVDir, "wav-dir", "", "directory for saving audio replies as WAV files")
	fs.StringVar(&cfg.LogLevel, "log-level", "warn", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return chatConfig{}, err
	}

	cfg.Credential = strings.TrimSpace(getenv("GEMINI_API_KEY"))
	if cfg.Credential == "" {
		cfg.Credential = strings.TrimSpace(getenv("GOOGLE_API_KEY"))
	}

	if err := validateChatConfig(cfg); err != nil {
		return chatConfig{}, err
	}
	return cfg, nil
}

func validateChatConfig(cfg chatConfig) error {
	if strings.TrimSpace(cfg.Credential) == "" {
		return errors.New("missing credential: set GEMINI_API_KEY (or GOOGLE_API_KEY)")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return errors.New("model must not be empty")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return errors.New("base-url must not be empty")
	}
	u, err := url.Parse(base)
	if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return errors.New("base-url must be a valid absolute URL")
	}
	if u.User != nil {
		return errors.New("base-url must not include credentials")
	}
	if !mojo.ValidVoice(cfg.Voice) {
		return fmt.Errorf("unknown voice %q (known: %s)", cfg.Voice, strings.Join(mojo.Voices, ", "))
	}
	if cfg.Timeout <= 0 {
		return errors.New("timeout must be > 0")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	return nil
}

func buildClientOptions(cfg chatConfig, logger *slog.Logger) []mojo.ClientOption {
	opts := []mojo.ClientOption{
		mojo.WithBaseURL(cfg.BaseURL),
		mojo.WithModel(cfg.Model),
		mojo.WithVoice(cfg.Voice),
		mojo.WithTurnTimeout(cfg.Timeout),
		mojo.WithLogger(logger),
	}
	if cfg.System != "" {
		opts = append(opts, mojo.WithSystemPrompt(cfg.System))
	}
	if cfg.TextOnly {
		opts = append(opts, mojo.WithResponseModalities(protocol.ModalityText))
	}
	return opts
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// handleSlashCommand executes a /command line. Returns false when the line
// is not a command and should be sent to the model.
func handleSlashCommand(ctx context.Context, line string, client *mojo.Client, out, errOut io.Writer) bool {
	switch {
	case line == "/voices":
		fmt.Fprintf(out, "voices: %s\n", strings.Join(mojo.Voices, ", "))
		return true
	case line == "/voice":
		fmt.Fprintf(out, "current voice: %s\n", client.Voice())
		return true
	case strings.HasPrefix(line, "/voice:"):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/voice:"))
		if err := client.SetVoice(ctx, name); err != nil {
			fmt.Fprintf(errOut, "voice switch error: %v\n", err)
			return true
		}
		fmt.Fprintf(out, "voice switched to %s\n", client.Voice())
		return true
	case line == "/stats":
		s := client.Stats()
		fmt.Fprintf(out, "state=%s voice=%s transcript=%d subscribers=%d\n",
			s.State, s.Voice, s.TranscriptLen, s.Subscribers)
		return true
	default:
		return false
	}
}

// saveWAV writes one turn's accumulated audio to a timestamped file.
func saveWAV(dir string, turn *mojo.Turn) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create wav dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("reply-%s.wav", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, turn.WAV(), 0o644); err != nil {
		return "", fmt.Errorf("write wav: %w", err)
	}
	return path, nil
}

func runChat(ctx context.Context, cfg chatConfig, in io.Reader, out, errOut io.Writer) error {
	if err := validateChatConfig(cfg); err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, errOut)
	client := mojo.NewClient(buildClientOptions(cfg, logger)...)

	if cfg.TextOnly {
		client.OnMessage(func(frag mojo.Fragment) {
			if frag.Text != "" {
				fmt.Fprint(out, frag.Text)
			}
		})
	}

	if err := client.Connect(ctx, cfg.Credential); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect()

	fmt.Fprintf(out, "Connected to %s (model %s, voice %s)\n", cfg.BaseURL, cfg.Model, client.Voice())
	fmt.Fprintln(out, "Type /exit or /quit to stop. /voice shows the voice, /voice:{name} switches, /voices lists.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "/exit", "/quit":
			fmt.Fprintln(out, "bye")
			return nil
		}
		if handleSlashCommand(ctx, line, client, out, errOut) {
			continue
		}

		turn, err := client.SendText(ctx, line, nil)
		if err != nil {
			fmt.Fprintf(errOut, "send error: %v\n", err)
			continue
		}

		if cfg.TextOnly {
			// Fragments were already printed progressively.
			fmt.Fprintln(out)
			continue
		}

		if text := turn.Text(); text != "" {
			fmt.Fprintln(out, text)
		}
		if pcm := turn.PCM(); len(pcm) > 0 {
			if cfg.WAVDir == "" {
				fmt.Fprintf(out, "[audio reply: %d bytes PCM, pass -wav-dir to save]\n", len(pcm))
				continue
			}
			path, err := saveWAV(cfg.WAVDir, turn)
			if err != nil {
				fmt.Fprintf(errOut, "save audio: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "[audio reply saved: %s]\n", path)
		}
	}
}

func main() {
	if err := dotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "mojo-chat: %v\n", err)
		os.Exit(1)
	}

	cfg, err := parseChatConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mojo-chat: %v\n", err)
		os.Exit(1)
	}

	if err := runChat(context.Background(), cfg, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "mojo-chat: %v\n", err)
		os.Exit(1)
	}
}
