package main

import (
	"encoding/binary"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/viper"

	"github.com/forgeflow-zz/alephone/cmd/config"
	"github.com/forgeflow-zz/alephone/pkg/audiomanager"
	"github.com/forgeflow-zz/alephone/pkg/backend"
	"github.com/forgeflow-zz/alephone/pkg/decoder"
	"github.com/forgeflow-zz/alephone/pkg/player"
)

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	renderPath := flag.String("render", "", "Render to this .WAV file instead of playing through the speakers.")
	loop := flag.Bool("loop", false, "Loop the track until interrupted.")
	flag.Parse()

	if flag.NArg() != 1 {
		slog.Error("expected exactly one audio file argument", "args", flag.Args())
		os.Exit(1)
	}
	audioFilePath := flag.Arg(0)

	config.LoadConfig(*configFilePath)
	logFilePointer := config.ConfigureLogger()
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	player.SetDefaultMusicVolume(float32(viper.GetFloat64("musicvolume")))

	// --------------------------------------------------------------------------------

	dec, err := decoder.NewFileDecoder(audioFilePath)
	if err != nil {
		slog.Error("could not open audio file", "audioFile", audioFilePath, "err", err)
		os.Exit(1)
	}
	defer dec.Close()

	if *renderPath != "" {
		renderToFile(dec, *renderPath, *loop)
		return
	}
	playToSpeakers(dec, *loop)
}

func playToSpeakers(dec decoder.StreamDecoder, loop bool) {
	manager, err := audiomanager.New(backend.NewOtoDevice(nil), config.ManagerConfig(), nil)
	if err != nil {
		slog.Error("could not initialize audio", "err", err)
		os.Exit(1)
	}
	defer manager.Close()

	manager.Start()
	if manager.PlayMusic(dec, loop) == nil {
		slog.Error("could not queue music")
		os.Exit(1)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for manager.QueueLen() > 0 {
		select {
		case <-interrupt:
			slog.Info("interrupted, stopping playback")
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func renderToFile(dec decoder.StreamDecoder, renderPath string, loop bool) {
	if loop {
		slog.Error("refusing to render a looping track to a file")
		os.Exit(1)
	}

	cfg := config.ManagerConfig()
	manager, err := audiomanager.New(backend.NewLoopbackDevice(), cfg, nil)
	if err != nil {
		slog.Error("could not initialize offline renderer", "err", err)
		os.Exit(1)
	}
	defer manager.Close()

	outFile, err := os.Create(renderPath)
	if err != nil {
		slog.Error("could not create output file", "renderPath", renderPath, "err", err)
		os.Exit(1)
	}
	defer outFile.Close()

	numChannels := cfg.Format.ChannelCount()
	encoder := wav.NewEncoder(outFile, cfg.Format.SampleRate, 16, numChannels, 1)
	defer encoder.Close()

	manager.Start()
	if manager.PlayMusic(dec, false) == nil {
		slog.Error("could not queue music")
		os.Exit(1)
	}

	frameCount := cfg.BufferFrames / 2
	out := make([]byte, frameCount*cfg.Format.BytesPerFrame())
	intBuf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: numChannels,
			SampleRate:  cfg.Format.SampleRate,
		},
		SourceBitDepth: 16,
	}

	for manager.QueueLen() > 0 {
		rendered := manager.RenderInto(out, frameCount)
		if rendered == 0 {
			continue
		}

		samples := rendered * numChannels
		if cap(intBuf.Data) < samples {
			intBuf.Data = make([]int, samples)
		}
		intBuf.Data = intBuf.Data[:samples]
		for i := range samples {
			intBuf.Data[i] = int(int16(binary.LittleEndian.Uint16(out[2*i:])))
		}

		if err := encoder.Write(intBuf); err != nil {
			slog.Error("could not write rendered audio", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("rendered track", "renderPath", renderPath)
}
