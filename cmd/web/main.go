package main

import (
	"subcatalog/internal/app"
	"subcatalog/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn(".env file not found, relying on the environment")
	}
	app.Run()
}
