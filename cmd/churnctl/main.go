package main

import (
	"flag"
	"fmt"
	"os"

	"churn-predictor/internal/common"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func main() {
	defaultURL := os.Getenv(common.EnvServerURL)
	if defaultURL == "" {
		defaultURL = common.DefaultServerURL
	}
	var (
		serverURL = flag.String("server", defaultURL, "Base URL of the prediction server")
		filePath  = flag.String("file", "", "Client file to upload (.csv, .xls, .xlsx)")
		timeout   = flag.Duration("timeout", 0, "Request timeout (0 waits for the prediction)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	client := resty.New().
		SetBaseURL(*serverURL).
		SetTimeout(*timeout)

	var apiErr errorResponse
	resp, err := client.R().
		SetFile("file", *filePath).
		SetError(&apiErr).
		Post("/predict")
	if err != nil {
		log.Fatal().Err(err).Str("server", *serverURL).Msg("upload failed")
	}
	if resp.IsError() {
		log.Fatal().Int("status", resp.StatusCode()).Str("detail", apiErr.Detail).Msg("prediction rejected")
	}

	fmt.Print(resp.String())
}
