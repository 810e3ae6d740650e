package main

import (
	"github.com/sirupsen/logrus"

	"carelens/internal/analysis/gemini"
	"carelens/internal/config"
	"carelens/internal/handle"
	"carelens/internal/httpserver"
)

func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()

	if cfg.GeminiAPIKey == "" {
		// the proxy still serves; every analyze call answers with the
		// misconfiguration until the credential appears
		logrus.Warn("GEMINI_API_KEY is not set; analyze requests will fail until it is")
	}

	engine := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	h := handle.New(engine, cfg.Timeout)

	logrus.WithFields(logrus.Fields{
		"model":   cfg.GeminiModel,
		"timeout": cfg.Timeout.String(),
	}).Info("starting carelens-proxy")
	logrus.Fatal(httpserver.Start(cfg.Addr, h))
}
