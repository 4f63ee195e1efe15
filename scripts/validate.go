package main

import (
	"flag"
	"log/slog"
	"os"

	"ticketline/internal/validation"
)

func main() {
	var baseURL, token string
	flag.StringVar(&baseURL, "url", "http://localhost:8081", "Base URL for API validation")
	flag.StringVar(&token, "token", os.Getenv("VALIDATE_TOKEN"), "Bearer token of a regular user")
	flag.Parse()

	validator := validation.NewContractValidator(baseURL, token)
	if err := validator.ValidateAll(); err != nil {
		slog.Error("Validation failed", "error", err)
		os.Exit(1)
	}
}
