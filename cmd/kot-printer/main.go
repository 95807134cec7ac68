// Command kot-printer consumes KOT events from Kafka and prints kitchen slips
// to stdout, optionally limited to a set of stations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/kafka"
	"restaurant-pos/internal/kot"
	"restaurant-pos/internal/logger"
)

func main() {
	stations := flag.String("stations", "", "comma separated stations to print (default all)")
	flag.Parse()

	// Slips go to stdout; logs stay in the log file.
	log := logger.New(logger.Options{Dir: "logs", Name: "kot-printer", MinLevel: logger.ParseLevel(os.Getenv("LOG_LEVEL")), Terminal: os.Stderr})
	defer log.Close()

	cfg := config.Load()
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("CONFIG", "KAFKA_BROKERS not set")
	}

	var only []string
	if *stations != "" {
		only = strings.Split(*stations, ",")
	}
	printer := kot.NewPrinter(os.Stdout, only, log)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.KOTEvents, cfg.Kafka.GroupID, log)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("APP", fmt.Sprintf("KOT printer listening on %s (stations: %s)", cfg.Kafka.Topics.KOTEvents, orAll(*stations)))
	if err := consumer.Start(ctx, printer.Handle); err != nil {
		log.Error("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
	}
	log.Info("APP", "KOT printer stopped")
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}
