package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/juju/loggo"

	"github.com/cbegin/midisynth-go"
)

func main() {
	var (
		filePath   = flag.String("file", "", "path to a MIDI file (.mid or .mid.gz)")
		wavPath    = flag.String("wav", "", "render -file offline to this 8-bit WAV instead of playing it")
		configPath = flag.String("config", "", "YAML config file (default $MIDISYNTH_CONFIG)")
		envFile    = flag.String("env", ".env", "optional dotenv file")
		backend    = flag.String("backend", "", "audio backend: ebiten|oto")
		sampleRate = flag.Int("rate", 0, "output sample rate (default 22050)")
		loop       = flag.Bool("loop", false, "loop playback; use with -loops to count then stop")
		loops      = flag.Int("loops", 3, "when -loop, stop after N loops (0 = loop forever)")
		volume     = flag.Int("volume", -1, "master volume, 256 = unity")
		keyboard   = flag.Bool("keyboard", false, "play live from the computer keyboard")
		seconds    = flag.Float64("seconds", 300, "maximum length of a -wav render")
		logSpec    = flag.String("log", "<root>=INFO", "logging configuration")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal(err)
	}
	if err := loggo.ConfigureLoggers(*logSpec); err != nil {
		log.Fatal(err)
	}
	if *configPath == "" {
		*configPath = os.Getenv("MIDISYNTH_CONFIG")
	}

	var opts []midisynth.Option
	if *configPath != "" {
		cfg, err := midisynth.LoadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		if opts, err = cfg.Options(); err != nil {
			log.Fatal(err)
		}
	}
	// Flags given on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			opts = append(opts, midisynth.WithBackend(*backend))
		case "rate":
			opts = append(opts, midisynth.WithSampleRate(uint32(*sampleRate)))
		case "loop":
			opts = append(opts, midisynth.WithLoop(*loop))
		case "volume":
			opts = append(opts, midisynth.WithVolume(*volume))
		}
	})

	switch {
	case *wavPath != "":
		if *filePath == "" {
			log.Fatal("-wav needs -file")
		}
		if err := renderWAV(*filePath, *wavPath, *seconds, opts); err != nil {
			log.Fatal(err)
		}
	case *keyboard:
		s, err := midisynth.New(opts...)
		if err != nil {
			log.Fatal(err)
		}
		if err := s.Start(); err != nil {
			log.Fatal(err)
		}
		if err := runKeyboard(s, os.Stdin, os.Stdout); err != nil {
			s.Stop()
			log.Fatal(err)
		}
		s.Stop()
	case *filePath != "":
		if err := playFile(*filePath, *loops, opts); err != nil {
			log.Fatal(err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func renderWAV(in, out string, seconds float64, opts []midisynth.Option) error {
	rate := midisynth.OutputRate(opts...)
	samples, err := midisynth.RenderFile(in, seconds, opts...)
	if err != nil {
		return err
	}
	if err := midisynth.WriteWAVFile(out, samples, int(rate)); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%.2fs)\n", out, float64(len(samples))/float64(rate))
	return nil
}

func playFile(path string, loops int, opts []midisynth.Option) error {
	s, err := midisynth.New(opts...)
	if err != nil {
		return err
	}
	ch := s.Watch()
	if err := s.PlayFile(path); err != nil {
		return err
	}
	loopCount := 0
	for event := range ch {
		switch event {
		case midisynth.EventPlaybackEnded:
			fmt.Println("playback completed")
			st := s.Stats()
			fmt.Printf("clipped %d, stolen %d, dropped %d\n", st.Clipped, st.Stolen, st.Dropped)
			return s.Stop()
		case midisynth.EventLoopCompleted:
			loopCount++
			fmt.Printf("loop %d completed\n", loopCount)
			if loops > 0 && loopCount >= loops {
				return s.Stop()
			}
		}
	}
	return nil
}
