package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/api"
	"github.com/rpupo63/inkwell/config"
	"github.com/rpupo63/inkwell/database"
	"github.com/rpupo63/inkwell/models"
	"github.com/rpupo63/inkwell/session"
)

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	config.LoadDotEnv()
	c := config.New()

	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(c, "LOG_LEVEL", "info")))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	currentDB, err := database.Open(ctx, c)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening database")
	}
	defer currentDB.Close()

	// If generating models, run generation and exit
	if config.GetBool(c, "GENERATE_MODELS", false) {
		if currentDB.GormDB() == nil {
			log.Fatal().Msg("GENERATE_MODELS needs DB_TYPE=postgres or supa")
		}
		fmt.Println("Generating models and query helpers...")
		if err := models.GenerateModels(currentDB.GormDB(), config.GetString(c, "GENERATE_MODELS_OUT", "./query")); err != nil {
			log.Fatal().Err(err).Msg("Error generating models")
		}
		return
	}

	// If generating column mismatch report, run report and exit
	if config.GetBool(c, "GENERATE_COLUMN_REPORT", false) {
		if currentDB.GormDB() == nil {
			log.Fatal().Msg("GENERATE_COLUMN_REPORT needs DB_TYPE=postgres or supa")
		}
		fmt.Println("Generating column mismatch report...")
		if err := models.GenerateColumnMismatchReport(currentDB.GormDB(), os.Stdout); err != nil {
			log.Fatal().Err(err).Msg("Error generating column report")
		}
		return
	}

	gate := session.NewGate(currentDB.CredentialRepo())

	server, err := api.NewServer(currentDB, gate, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	// Listen for interrupt signals to gracefully shutdown the server
	serveUntilStopped(server, listenToInterrupt, 30*time.Second)
}

// serveUntilStopped runs server until it fails or stop reports, then shuts it down.
// It returns the error that ended the run.
func serveUntilStopped(server api.Server, stop func(chan<- error), shutdownTimeout time.Duration) error {
	// room for both senders so neither blocks once nobody receives
	errChannel := make(chan error, 2)

	go server.Start(errChannel)
	go stop(errChannel)

	fatalErr := <-errChannel
	fmt.Printf("Closing server: %v\n", fatalErr)

	server.ShutdownGracefully(shutdownTimeout)
	return fatalErr
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
