// qualys-proxy exposes the dispatcher over plain HTTP for tooling that
// cannot speak the Qualys APIs directly: one pass-through route per
// registered endpoint, plus health and Prometheus metrics endpoints.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/mholtzmann/qualys-api-client/pkg/auth"
	"github.com/mholtzmann/qualys-api-client/pkg/client"
	"github.com/mholtzmann/qualys-api-client/pkg/config"
	"github.com/mholtzmann/qualys-api-client/pkg/logging"
	"github.com/mholtzmann/qualys-api-client/pkg/registry"
)

func main() {
	config.LoadConfig()
	settings := config.GetSettings()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(settings.LogLevel),
		Pretty: settings.LogPretty,
		Output: os.Stderr,
	})

	platform, err := resolvePlatform(settings)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve platform")
	}
	if settings.Username == "" || settings.Password == "" {
		log.Fatal().Msg("QUALYS_AUTH_USERNAME and QUALYS_AUTH_PASSWORD are required")
	}

	creds := auth.NewBasic(settings.Username, settings.Password, platform)
	qualysClient, err := client.New(client.Config{
		Credentials: creds,
		HTTPClient:  &http.Client{Timeout: settings.HTTPTimeout},
		UserAgent:   settings.UserAgent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create client")
	}

	http.HandleFunc("/health", healthHandler)
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/api/", callHandler(qualysClient))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port
	log.Info().
		Str("addr", addr).
		Str("platform", platform.Code).
		Int("endpoints", registry.Len()).
		Msg("Starting qualys proxy")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func resolvePlatform(settings config.Settings) (auth.Platform, error) {
	if settings.APIURL != "" && settings.GatewayURL != "" {
		return auth.Override(settings.PlatformCode, settings.APIURL, settings.GatewayURL), nil
	}
	return auth.ResolvePlatform(settings.PlatformCode)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// callHandler dispatches /api/{module}/{endpoint}?param=value requests.
// Query parameters pass through the descriptor's allow-list validation; the
// response body is relayed verbatim.
func callHandler(qualysClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/"), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			http.Error(w, "expected /api/{module}/{endpoint}", http.StatusBadRequest)
			return
		}

		params := make(map[string]string)
		for name, values := range r.URL.Query() {
			params[name] = values[0]
		}

		ctx, cancel := context.WithTimeout(r.Context(), 120*time.Second)
		defer cancel()

		resp, err := qualysClient.Call(ctx, parts[0], parts[1], client.CallOptions{Params: params})
		if err != nil {
			http.Error(w, fmt.Sprintf("qualys request failed: %v", err), http.StatusBadGateway)
			return
		}

		if resp.ContentType != "" {
			w.Header().Set("Content-Type", resp.ContentType)
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := w.Write(resp.Body); err != nil {
			log.Warn().Err(err).Msg("Failed to write response")
		}
	}
}
