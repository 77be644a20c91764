package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/agreement-center/agreement-backend/agreement"
	"github.com/agreement-center/agreement-backend/common"
	"github.com/agreement-center/agreement-backend/credentials"
	"github.com/agreement-center/agreement-backend/cryptoutils"
	"github.com/agreement-center/agreement-backend/httpserver"
	"github.com/agreement-center/agreement-backend/identity"
	"github.com/agreement-center/agreement-backend/interfaces"
	"github.com/agreement-center/agreement-backend/storage"
)

var flags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
	&cli.StringFlag{
		Name:  "metrics-addr",
		Value: "127.0.0.1:8090",
		Usage: "address to listen on for Prometheus metrics",
	},
	&cli.StringFlag{
		Name:  "store",
		Value: "memory://",
		Usage: "document store URI (github://owner/repo?branch=main, vault://host/mount/path, nats://host/bucket, file:///dir, memory://)",
	},
	&cli.StringFlag{
		Name:  "github-app-client-id",
		Value: "",
		Usage: "GitHub App client ID (required for github:// stores)",
	},
	&cli.Int64Flag{
		Name:  "github-account-id",
		Value: 0,
		Usage: "GitHub account ID the App is installed on (required for github:// stores)",
	},
	&cli.StringFlag{
		Name:  "github-app-key-file",
		Value: "",
		Usage: "PEM file with the GitHub App private key (required for github:// stores)",
	},
	&cli.StringFlag{
		Name:  "encryption-passphrase",
		Value: "",
		Usage: "passphrase for encrypting request origins recorded in events",
	},
	&cli.StringFlag{
		Name:  "sessions-file",
		Value: "",
		Usage: "JSON file mapping access tokens to party identities",
	},
	&cli.Int64Flag{
		Name:  "session-ttl-seconds",
		Value: 86400,
		Usage: "seconds before a session expires",
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
	&cli.BoolFlag{
		Name:  "log-uid",
		Value: false,
		Usage: "generate a uuid and add to all log messages",
	},
	&cli.StringFlag{
		Name:  "log-service",
		Value: "agreement-server",
		Usage: "add 'service' tag to logs",
	},
	&cli.BoolFlag{
		Name:  "pprof",
		Value: false,
		Usage: "enable pprof debug endpoint",
	},
	&cli.Int64Flag{
		Name:  "drain-seconds",
		Value: 45,
		Usage: "seconds to wait in drain HTTP request",
	},
}

func main() {
	app := &cli.App{
		Name:  "agreement-server",
		Usage: "Serve the agreement API over a revisioned document store",
		Flags: flags,
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String("listen-addr")
			metricsAddr := cCtx.String("metrics-addr")
			storeURI := cCtx.String("store")
			passphrase := cCtx.String("encryption-passphrase")
			sessionsFile := cCtx.String("sessions-file")
			sessionTTL := time.Duration(cCtx.Int64("session-ttl-seconds")) * time.Second
			logJSON := cCtx.Bool("log-json")
			logDebug := cCtx.Bool("log-debug")
			logUID := cCtx.Bool("log-uid")
			logService := cCtx.String("log-service")
			enablePprof := cCtx.Bool("pprof")
			drainDuration := time.Duration(cCtx.Int64("drain-seconds")) * time.Second

			logger := common.SetupLogger(&common.LoggingOpts{
				Debug:   logDebug,
				JSON:    logJSON,
				Service: logService,
				Version: common.Version,
			})

			if logUID {
				id := uuid.Must(uuid.NewRandom())
				logger = logger.With("uid", id.String())
			}

			location, err := interfaces.NewStoreLocation(storeURI)
			if err != nil {
				logger.Error("Invalid store URI", "err", err)
				return err
			}

			// GitHub stores need an App credential provider; the other
			// backends authenticate through their URI.
			var credentialProvider interfaces.CredentialProvider
			if location.Scheme == "github" {
				clientID := cCtx.String("github-app-client-id")
				accountID := cCtx.Int64("github-account-id")
				keyFile := cCtx.String("github-app-key-file")
				if clientID == "" || accountID == 0 || keyFile == "" {
					logger.Error("github stores require github-app-client-id, github-account-id and github-app-key-file")
					return errors.New("incomplete github app configuration")
				}

				keyPEM, err := os.ReadFile(keyFile)
				if err != nil {
					logger.Error("Failed to read GitHub App key file", "err", err)
					return err
				}

				appProvider, err := credentials.NewGitHubAppProvider(clientID, accountID, keyPEM, logger)
				if err != nil {
					logger.Error("Failed to create GitHub App credential provider", "err", err)
					return err
				}
				credentialProvider = credentials.NewCached(appProvider)
			}

			storageFactory := storage.NewFactory(logger, credentialProvider)
			store, err := storageFactory.StoreFor(location)
			if err != nil {
				logger.Error("Failed to create document store", "err", err)
				return err
			}
			logger.Info("Document store ready", "store", store.Name(), "location", store.LocationURI())

			var cipher interfaces.LocationCipher
			if passphrase != "" {
				cipher, err = cryptoutils.NewLocationCipher(passphrase)
				if err != nil {
					logger.Error("Failed to create location cipher", "err", err)
					return err
				}
			}

			sessions := identity.NewSessions(sessionTTL)
			if sessionsFile != "" {
				count, err := loadSessions(sessions, sessionsFile)
				if err != nil {
					logger.Error("Failed to load sessions file", "err", err)
					return err
				}
				logger.Info("Sessions loaded", "count", count)
			}

			service := agreement.NewService(store, cipher, logger)
			handler := httpserver.NewHandler(service, sessions, logger)

			cfg := &httpserver.HTTPServerConfig{
				ListenAddr:               listenAddr,
				MetricsAddr:              metricsAddr,
				Log:                      logger,
				EnablePprof:              enablePprof,
				DrainDuration:            drainDuration,
				GracefulShutdownDuration: 30 * time.Second,
				ReadTimeout:              60 * time.Second,
				WriteTimeout:             30 * time.Second,
			}

			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadSessions reads a JSON object of access token to party identity and
// registers every pair.
func loadSessions(sessions *identity.Sessions, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("could not parse sessions file: %w", err)
	}

	for token, rawIdentity := range parsed {
		partyIdentity, err := interfaces.NewPartyIdentity(rawIdentity)
		if err != nil {
			return 0, fmt.Errorf("invalid identity for token: %w", err)
		}
		sessions.Put(token, partyIdentity)
	}
	return len(parsed), nil
}
