package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/siegeai/jsonkit/commands"
	"github.com/sirupsen/logrus"
)

func main() {
	// JSONKIT_* settings may also come from a .env file
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		stop()
		logrus.WithError(err).Error("jsonkit failed")
		os.Exit(1)
	}
}
