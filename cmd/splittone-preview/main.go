// splittone-preview serves a live grading preview over HTTP.
//
// It loads one source frame, renders it through the current grade with
// the curve plot on, and pushes PNG proofs to websocket clients at /ws.
// Clients send partial grade updates back as JSON; /grade returns the
// current grade as a YAML document ready for the batch CLI.
//
// Usage:
//
//	splittone-preview [options]
//
// Options:
//
//	-addr <addr>     HTTP listen address - default: :8089
//	-config <file>   server config YAML (addr, frame, grade)
//	-frame <file>    source frame (.pfm/.stf/.j2k/.png)
//	-grade <file>    initial grade document (YAML)
//	-v               verbose output
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrjoshuak/go-splittone/frameio"
	"github.com/mrjoshuak/go-splittone/grade"
	"github.com/mrjoshuak/go-splittone/internal/preview"
)

const defaultAddr = ":8089"

func main() {
	// ---- Flags (a config file can fill in whatever is not given) ----
	var (
		addr       = flag.String("addr", "", "HTTP listen address (default :8089)")
		configPath = flag.String("config", "", "path to server config YAML")
		framePath  = flag.String("frame", "", "source frame to preview")
		gradePath  = flag.String("grade", "", "initial grade document")
		verbose    = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// ---- Load config (optional); flags win where both are set ----
	var cfg *preview.Config
	if *configPath != "" {
		c, err := preview.LoadConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
		cfg = c
	}

	eAddr, eFrame, eGrade := *addr, *framePath, *gradePath
	if cfg != nil {
		if eAddr == "" {
			eAddr = cfg.Addr
		}
		if eFrame == "" {
			eFrame = cfg.Frame
		}
		if eGrade == "" {
			eGrade = cfg.Grade
		}
	}
	if eAddr == "" {
		eAddr = defaultAddr
	}
	if eFrame == "" {
		log.Fatal().Msg("no source frame; pass -frame or set frame in the config")
	}

	// ---- Load the frame and the initial grade ----
	frame, err := frameio.ReadFrame(eFrame)
	if err != nil {
		log.Fatal().Err(err).Str("path", eFrame).Msg("frame load failed")
	}
	log.Info().
		Str("path", eFrame).
		Int("width", frame.Rect.Dx()).
		Int("height", frame.Rect.Dy()).
		Msg("frame loaded")

	var doc *grade.Doc
	if eGrade != "" {
		d, err := grade.Load(eGrade)
		if err != nil {
			log.Fatal().Err(err).Str("path", eGrade).Msg("grade load failed")
		}
		doc = d
	}

	state, err := preview.NewState(frame, doc)
	if err != nil {
		log.Fatal().Err(err).Msg("preview state init failed")
	}

	// ---- HTTP routes ----
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", state.HandleWS)
	mux.HandleFunc("/grade", state.HandleGrade)
	mux.HandleFunc("/health", state.HandleHealth)

	srv := &http.Server{
		Addr:         eAddr,
		Handler:      preview.WithCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ---- Run server ----
	go func() {
		log.Info().Str("addr", eAddr).Msg("preview server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
}
