package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"script-studio-api/internal/application/generation/session"
	"script-studio-api/internal/interfaces/http/dto"
	"script-studio-api/internal/interfaces/http/sse"
)

type generateFlags struct {
	server    string
	template  string
	sessionID string
	clientID  string
	provider  string
	inputs    []string
	outDir    string
}

func newGenerateCmd() *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a template and stream its progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.template == "" && flags.sessionID == "" {
				return errors.New("either --template or --session is required")
			}
			inputs, err := parseInputs(flags.inputs)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runGenerate(ctx, cmd.OutOrStdout(), flags, inputs)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.server, "server", "s", "http://localhost:8080", "Server base URL")
	f.StringVarP(&flags.template, "template", "t", "", "Template ID to run")
	f.StringVar(&flags.sessionID, "session", "", "Resume an existing session")
	f.StringVar(&flags.clientID, "client-id", "", "Client ID used for preferences and rate limiting")
	f.StringVar(&flags.provider, "provider", "", "LLM provider name")
	f.StringArrayVarP(&flags.inputs, "input", "i", nil, "Template input as key=value (repeatable)")
	f.StringVarP(&flags.outDir, "out", "o", "", "Directory to write generated files into")
	return cmd
}

func parseInputs(pairs []string) (map[string]string, error) {
	inputs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}
		inputs[strings.TrimSpace(key)] = value
	}
	return inputs, nil
}

func runGenerate(ctx context.Context, out io.Writer, flags generateFlags, inputs map[string]string) error {
	body, err := json.Marshal(dto.GenerationRequest{
		TemplateID: flags.template,
		SessionID:  flags.sessionID,
		Inputs:     inputs,
		Provider:   flags.provider,
		ClientID:   flags.clientID,
	})
	if err != nil {
		return err
	}

	url := strings.TrimRight(flags.server, "/") + "/v1/generations/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", sse.ContentType)
	if flags.clientID != "" {
		req.Header.Set(dto.ClientIDHeader, flags.clientID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		var e dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Message)
	}

	final, err := consumeEvents(sse.NewDecoder(resp.Body), out)
	if err != nil {
		return err
	}
	if final == nil {
		return fmt.Errorf("stream ended before completion (session %s)", resp.Header.Get("X-Session-ID"))
	}
	if final.Type == session.EventError {
		return fmt.Errorf("generation failed [%s]: %s", final.Code, final.Error)
	}
	if flags.outDir == "" {
		return nil
	}
	return writeFiles(flags.outDir, final, out)
}

// consumeEvents 打印进度直到终止事件，流提前结束时返回 nil 事件
func consumeEvents(dec *sse.Decoder, out io.Writer) (*session.Event, error) {
	for {
		var ev session.Event
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
		switch ev.Type {
		case session.EventMessage:
			step := ev.CurrentStep
			if ev.Message != nil && ev.Message.StepID != "" {
				step = ev.Message.StepID
			}
			fmt.Fprintf(out, "[%3d%%] %s\n", ev.Progress, step)
		case session.EventComplete:
			fmt.Fprintf(out, "[100%%] completed session %s (%d files)\n", ev.SessionID, len(ev.Files))
			return &ev, nil
		case session.EventError:
			return &ev, nil
		}
	}
}

func writeFiles(dir string, ev *session.Event, out io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range ev.Files {
		path := filepath.Join(dir, filepath.Base(f.Name)+".txt")
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s (%d chars)\n", path, f.Chars)
	}
	return nil
}
