package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sectify/sectify/internal/config"
	"github.com/sectify/sectify/internal/domain/transcode"
	"github.com/sectify/sectify/internal/domain/watermark"
	"github.com/sectify/sectify/internal/logging"
)

// Exit codes mirror cmd/reaper: 0 match found or clean no-match, 2 invalid
// usage or configuration, 1 internal failure reading/decoding the file.
const (
	exitOK       = 0
	exitBadUsage = 2
	exitFailure  = 1
)

// wmdetect is the offline admin tool spec.md's watermarking module implies
// but never names a route for: given a leaked recording, decode it and
// correlate it against the session ids an operator suspects, using C3's
// watermark.Registry.DetectSession. No streaming request runs detection;
// this CLI is its only caller.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	loadEnvFiles()

	fs := flag.NewFlagSet("wmdetect", flag.ContinueOnError)
	file := fs.String("file", "", "path to a candidate WAV file to test for a watermark")
	sessions := fs.String("sessions", "", "comma-separated session ids (hex) to test against")
	if err := fs.Parse(args); err != nil {
		return exitBadUsage
	}
	if *file == "" || *sessions == "" {
		fmt.Fprintln(os.Stderr, "usage: wmdetect -file <path.wav> -sessions <hex,hex,...>")
		return exitBadUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "wmdetect: %v\n", err)
		return exitBadUsage
	}
	log := logging.New(cfg)

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Error().Err(err).Str("file", *file).Msg("read candidate file")
		return exitFailure
	}

	decoder := transcode.NewWAVDecoder()
	pcm, err := decoder.Decode(context.Background(), raw)
	if err != nil {
		log.Error().Err(err).Msg("decode candidate file")
		return exitFailure
	}

	registry := watermark.NewRegistry()
	for _, sid := range strings.Split(*sessions, ",") {
		sid = strings.TrimSpace(sid)
		if sid == "" {
			continue
		}
		registry.Register([]byte(sid))
	}

	result := registry.DetectSession(pcm.Samples, pcm.SampleRate, pcm.Channels)
	if !result.Matched {
		fmt.Printf("no match (best correlation %.3f)\n", result.Correlation)
		return exitOK
	}

	fmt.Printf("matched session %s (correlation %.3f)\n", watermark.SessionIDHex(result.SessionID), result.Correlation)
	return exitOK
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
