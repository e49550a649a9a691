package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"

	"luna/internal/assistant"
	"luna/internal/audio"
	"luna/internal/config"
	"luna/internal/dispatch"
	"luna/internal/events"
	"luna/internal/intent"
	"luna/internal/ipc"
	"luna/internal/listen"
	"luna/internal/llm"
	"luna/internal/notify"
	"luna/internal/proxy"
	"luna/internal/server"
	"luna/internal/skills"
	"luna/internal/speech"
	"luna/internal/tool"
	"luna/internal/tts"
	"luna/pkg/audioconv"
	"luna/pkg/stt"

	_ "luna/pkg/audioconv/opus"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	os.Exit(run())
}

func run() int {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address, empty for direct")
	httpAddr := cli.String("http", "", "HTTP backend listen address, empty to disable")
	wake := cli.String("wake", "", "Override the wake word, \"-\" for trigger-only")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		return 1
	}
	switch *wake {
	case "":
	case "-":
		cfg.Voice.WakeWord = ""
	default:
		cfg.Voice.WakeWord = *wake
	}
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		return 1
	}

	log.Debug("Loaded config", "provider", cfg.Model.Provider, "stt", cfg.Voice.STT, "tts", cfg.Voice.TTS)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient, err := proxy.NewSocksClient(*proxyAddr)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
		return 1
	}

	log.Debug("Loaded proxy", "proxy", *proxyAddr)

	var oai openai.Client
	if cfg.Model.OpenAIAPIKey != "" {
		oai = llm.NewOpenAIClient(cfg.Model.OpenAIAPIKey, httpClient)
	}

	registry, err := buildRegistry(cfg, httpClient)
	if err != nil {
		log.Error("Failed to register tools", "err", err)
		return 1
	}

	model, err := buildModel(ctx, cfg, httpClient, oai, registry.Descriptors())
	if err != nil {
		log.Error("Failed to init model", "provider", cfg.Model.Provider, "err", err)
		return 1
	}

	log.Debug("Loaded model", "provider", cfg.Model.Provider)

	var factory speech.Factory
	switch cfg.Voice.TTS {
	case "openai":
		factory = tts.NewCloud(oai, "nova")
	default:
		factory = tts.NewEspeak(cfg.Voice.Voice)
	}
	voice := speech.NewVoice(factory, cfg.Voice.Rate)
	defer voice.Close()

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		return 1
	}
	defer rec.Close()

	log.Debug("Loaded recorder")

	var transcriber listen.Transcriber
	switch cfg.Voice.STT {
	case "openai":
		transcriber = listen.NewCloud(oai)
	default:
		whisper, err := stt.NewTranscriber(cfg.Voice.WhisperModel, stt.Options{Language: "auto"})
		if err != nil {
			log.Error("Failed to init whisper", "model", cfg.Voice.WhisperModel, "err", err)
			return 1
		}
		defer whisper.Close()
		transcriber = whisper
	}

	log.Debug("Loaded transcriber", "stt", cfg.Voice.STT)

	hub := events.NewHub()
	defer hub.Close()

	session := dispatch.NewSession()
	loop := assistant.Loop{
		Listener: listen.NewMicrophone(rec, transcriber),
		Voice:    voice,
		WakeWord: cfg.Voice.WakeWord,
	}
	cue := notify.Cue{}
	if cfg.Voice.Chime != "" {
		if _, err := os.Stat(cfg.Voice.Chime); err == nil {
			cue.Chime = &notify.Chime{Path: cfg.Voice.Chime}
		} else {
			log.Warn("Chime not found", "path", cfg.Voice.Chime)
		}
	}
	if _, err := exec.LookPath("notify-send"); err == nil {
		cue.Notify = true
	}
	loop.Chime = cue
	if _, err := exec.LookPath("pactl"); err == nil {
		loop.Ducker = audio.NewDucker([]string{"luna"}, 10, 0.3, 300*time.Millisecond)
	}

	luna := assistant.New(assistant.Options{
		Local:   intent.NewMatcher(registry, session),
		Remote:  dispatch.New(model, registry, session),
		Session: session,
		Events:  hub,
		Loop:    loop,
	})

	ctl, err := ipc.StartServer(ctx, cfg.Server.Socket, control(luna, voice, transcriber))
	if err != nil {
		log.Error("Failed ipc server", "socket", cfg.Server.Socket, "err", err)
		return 1
	}
	defer ctl.Close()

	httpErr := make(chan error, 1)
	if *httpAddr != "" {
		srv := server.New(server.Options{
			Assistant:   luna,
			Voice:       voice,
			Transcriber: transcriber,
			Events:      http.HandlerFunc(hub.ServeWS),
			APIKey:      cfg.Server.APIKey,
		})
		go func() { httpErr <- srv.ListenAndServe(ctx, *httpAddr) }()
	}

	log.Info("Boot up - successful", "session", session.ID(), "wake", cfg.Voice.WakeWord)

	loopErr := make(chan error, 1)
	go func() { loopErr <- luna.Run(ctx) }()

	select {
	case err = <-loopErr:
	case err = <-httpErr:
		if err != nil {
			log.Error("HTTP backend failed", "err", err)
			stop()
			<-loopErr
			return 1
		}
		err = <-loopErr
	}
	stop()

	switch {
	case errors.Is(err, dispatch.ErrFarewell):
		log.Info("Farewell, shutting down")
		return 0
	case err == nil, errors.Is(err, context.Canceled):
		log.Info("Shutting down")
		return 0
	default:
		log.Error("Assistant stopped", "err", err)
		return 1
	}
}

func buildRegistry(cfg *config.Config, httpClient *http.Client) (*tool.Registry, error) {
	opt := skills.Options{
		DesktopDir: cfg.Desktop.Dir,
		Weather:    skills.NewWeatherClient(httpClient, cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout),
	}
	if m := skills.NewSMTPMailer(cfg.SMTP); m != nil {
		opt.Mailer = m
	}

	sk, err := skills.New(opt)
	if err != nil {
		return nil, err
	}
	log.Debug("Desktop resolved", "path", sk.Desktop)

	registry := tool.NewRegistry()
	if err := sk.Register(registry); err != nil {
		return nil, err
	}
	registry.Seal()
	return registry, nil
}

func buildModel(ctx context.Context, cfg *config.Config, httpClient *http.Client, oai openai.Client, tools []tool.Descriptor) (llm.Model, error) {
	var (
		m    llm.Model
		name = cfg.Model.Name
	)
	switch cfg.Model.Provider {
	case "openai":
		if name == "" {
			name = string(llm.DefaultOpenAIModel)
		}
		m = llm.NewOpenAI(oai, name, tools)
	default:
		if name == "" {
			name = llm.DefaultGeminiModel
		}
		g, err := llm.NewGemini(ctx, cfg.Model.GoogleAPIKey, name, httpClient, tools)
		if err != nil {
			return nil, err
		}
		m = g
	}
	m = llm.NewInstrumented(m, cfg.Model.Provider, name)
	return llm.NewLimited(m, cfg.Model.RPM), nil
}

// control answers luna-ctl requests.
func control(luna *assistant.Assistant, voice speech.Speaker, tr listen.Transcriber) ipc.Handler {
	return func(ctx context.Context, msg ipc.ControlMessage) ipc.ControlReply {
		switch msg.Cmd {
		case ipc.CmdTrigger:
			if !luna.Trigger() {
				return ipc.Ok("already listening")
			}
			return ipc.Ok("")
		case ipc.CmdAsk:
			res, err := luna.Handle(ctx, msg.Text, voice)
			if err != nil && !errors.Is(err, dispatch.ErrFarewell) {
				return ipc.Fail("%v", err)
			}
			return ipc.Ok(res.Reply)
		case ipc.CmdSay:
			luna.Say(ctx, msg.Text)
			return ipc.Ok("")
		case ipc.CmdReset:
			luna.Reset()
			return ipc.Ok(intent.ResetReply)
		case ipc.CmdTranscribe:
			pcm, err := audioconv.ConvertFileToPCM16k(ctx, msg.Text, audioconv.Options{})
			if err != nil {
				return ipc.Fail("%v", err)
			}
			text, err := tr.Transcribe(ctx, pcm)
			if err != nil {
				return ipc.Fail("%v", err)
			}
			return ipc.Ok(listen.Normalize(text))
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.Fail("unknown command %q", msg.Cmd)
		}
	}
}
