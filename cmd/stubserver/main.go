package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/harrylevesque/starseeker/internal/api"
	"github.com/harrylevesque/starseeker/internal/utils"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	apiKey := flag.String("api-key", os.Getenv("STARSEEKER_API_KEY"), "Required x-api-key value (empty disables the check)")
	logFile := flag.String("log", "", "Request log file (default stderr)")
	flag.Parse()

	reqLog := utils.NewWriterLogger(os.Stderr)
	if *logFile != "" {
		l, err := utils.NewLogger(*logFile)
		if err != nil {
			log.Fatalf("open log: %v", err)
		}
		reqLog = l
	}
	defer reqLog.Close()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.NewRouter(api.NewServer(api.DefaultNetwork(), *apiKey, reqLog)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go reqLog.RotateLog(ctx.Done())
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if *apiKey == "" {
		log.Println("Warning: no API key set, all requests are accepted")
	}
	log.Println("Stub StarSeeker API running on", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
