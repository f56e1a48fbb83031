// SPDX-License-Identifier: MIT

// recorder-sim is a simulation recorder for exercising the daemon without
// the native meeting SDK. It reads the recorder configuration, emits the
// full status protocol on stdout, writes a real WAV artifact, and exits 0
// on SIGTERM/SIGINT.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicepick/recorderd/internal/session"
	"github.com/voicepick/recorderd/internal/wav"
)

func main() {
	configPath := flag.String("config", "", "path to recorder configuration")
	joinDelay := flag.Duration("join-delay", 500*time.Millisecond, "simulated meeting join time")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: recorder-sim --config <config.json>")
		os.Exit(2)
	}

	if err := run(*configPath, *joinDelay); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func run(configPath string, joinDelay time.Duration) error {
	raw, err := os.ReadFile(configPath) // #nosec G304
	if err != nil {
		return err
	}
	var cfg session.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	fmt.Println("STARTING_BOT")
	fmt.Printf("Meeting: %s\n", cfg.MeetingNumber)
	fmt.Printf("Username: %s\n", cfg.UserName)

	if cfg.Auth.JWT != "" {
		fmt.Println("AUTHENTICATION_SUCCESS")
	}

	time.Sleep(joinDelay)
	fmt.Println("MEETING_JOINED")
	fmt.Println("RECORDING_STARTED")

	w, err := wav.Create(cfg.AudioFile)
	if err != nil {
		return err
	}
	fmt.Printf("AUDIO_FILE_CREATED: %s\n", cfg.AudioFile)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)

	// One heartbeat per interval; silence between markers is tolerated by
	// the daemon but heartbeats keep the output stream observable.
	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()
	samples := time.NewTicker(100 * time.Millisecond)
	defer samples.Stop()

	// 100ms of silence per tick at 16 kHz mono 16-bit.
	frame := make([]byte, wav.SampleRate/10*2)

loop:
	for {
		select {
		case <-sig:
			break loop
		case <-heartbeat.C:
			fmt.Println("RECORDING_HEARTBEAT")
		case <-samples.C:
			if _, err := w.Write(frame); err != nil {
				_ = w.Close()
				return err
			}
		}
	}

	fmt.Println("RECORDING_STOPPED")
	if err := w.Close(); err != nil {
		return err
	}
	fmt.Println("MEETING_LEFT")
	return nil
}
