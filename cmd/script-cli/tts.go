package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"script-studio-api/internal/application/generation/tts"
)

func newTTSCmd() *cobra.Command {
	var (
		limit  int
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "tts [file]",
		Short: "Split narration text into TTS-sized chunks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 1 {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			chunker := tts.NewChunker(limit)
			chunks := chunker.Split(string(raw))
			out := cmd.OutOrStdout()
			if outDir == "" {
				for i, c := range chunks {
					fmt.Fprintf(out, "--- chunk %d (%d chars) ---\n%s\n", i+1, len([]rune(c)), c)
				}
				return nil
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for i, c := range chunks {
				path := filepath.Join(outDir, fmt.Sprintf("chunk_%03d.txt", i+1))
				if err := os.WriteFile(path, []byte(c), 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "wrote %d chunks (limit %d) to %s\n", len(chunks), chunker.Limit(), outDir)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum characters per chunk (0 uses the default)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write chunk files into")
	return cmd
}
