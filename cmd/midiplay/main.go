// Command midiplay plays a .mid file or a JSON note list through a SoundFont.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Conceptual-Machines/midigen-api/internal/audio"
	"github.com/Conceptual-Machines/midigen-api/internal/music"
	"github.com/Conceptual-Machines/midigen-api/internal/playback"
)

func main() {
	soundFont := flag.String("soundfont", os.Getenv("MIDIGEN_SOUNDFONT"), "path to a General MIDI .sf2 file")
	volume := flag.Float64("volume", 0.8, "output volume between 0 and 1")
	instrument := flag.String("instrument", music.DefaultInstrument, "instrument for JSON note lists")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: midiplay -soundfont font.sf2 [-volume 0.8] file.mid|notes.json\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 || *soundFont == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*soundFont, flag.Arg(0), *instrument, *volume); err != nil {
		log.Fatalf("midiplay: %v", err)
	}
}

func run(soundFontPath, input, instrument string, volume float64) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	sf, err := audio.LoadSoundFont(soundFontPath)
	if err != nil {
		return err
	}
	synth, err := audio.NewSynth(sf, audio.DefaultSampleRate)
	if err != nil {
		return err
	}
	if err := synth.Start(audio.DefaultBuffer); err != nil {
		return err
	}
	defer synth.Close()

	done := make(chan struct{})
	scheduler := playback.New(synth,
		playback.WithProgressInterval(250*time.Millisecond),
		playback.WithProgressHandler(func(pos, total time.Duration) {
			fmt.Printf("\r%s / %s", pos.Round(time.Second/10), total.Round(time.Second/10))
		}),
		playback.WithStateHandler(func(s playback.State) {
			if s == playback.Idle {
				close(done)
			}
		}),
	)
	scheduler.SetVolume(volume)

	if strings.EqualFold(filepath.Ext(input), ".json") {
		var notes []music.Note
		if err := json.Unmarshal(data, &notes); err != nil {
			return fmt.Errorf("failed to parse note list: %w", err)
		}
		result := music.Sanitize(notes)
		if result.Dropped > 0 {
			log.Printf("dropped %d invalid notes", result.Dropped)
		}
		err = scheduler.Play(result.Notes, instrument)
	} else {
		err = scheduler.PlayFile(data)
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-done:
	case <-ctx.Done():
		scheduler.Stop()
		<-done
	}
	fmt.Println()

	// let the release tails ring out
	time.Sleep(audio.DefaultBuffer)
	return nil
}
