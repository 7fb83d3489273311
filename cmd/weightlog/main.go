package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"weightlog/internal/adapter/auth"
	adapthttp "weightlog/internal/adapter/http"
	"weightlog/internal/adapter/prom"
	"weightlog/internal/app"
	"weightlog/internal/config"
	"weightlog/internal/domain"
	"weightlog/internal/logging"
)

func main() {
	var err error
	if len(os.Args) > 1 && os.Args[1] == "hash-passphrase" {
		err = runHashPassphrase()
	} else {
		err = run()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "weightlog: %v\n", err)
		os.Exit(1)
	}
}

// runHashPassphrase reads a passphrase from the first line of stdin and prints
// its bcrypt hash for WEIGHTLOG_PASSPHRASE_HASH.
func runHashPassphrase() error {
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		return auth.ErrNoPassphrase
	}
	hash, err := auth.HashPassphrase(strings.TrimRight(sc.Text(), "\r"))
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	blobs, closeBlobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s blob store: %w", cfg.BlobDriver, err)
	}
	defer func() {
		if err := closeBlobs(); err != nil {
			logger.Warn("closing blob store", "error", err)
		}
	}()

	storeOpts := []app.StoreOption{app.WithSnapshotKey(cfg.SnapshotKey), app.WithStoreLogger(logger)}
	gateOpts := []app.GateOption{app.WithGateLogger(logger)}
	var httpOpts []adapthttp.Option
	if cfg.WebDir != "" {
		httpOpts = append(httpOpts, adapthttp.WithWebDir(cfg.WebDir))
	}
	httpOpts = append(httpOpts, adapthttp.WithAuthTimeout(cfg.AuthTimeout))

	if cfg.MetricsEnabled {
		obs := prom.New()
		storeOpts = append(storeOpts, app.WithStoreObserver(obs))
		gateOpts = append(gateOpts, app.WithGateObserver(obs))
		httpOpts = append(httpOpts, adapthttp.WithMetrics(obs.Handler()))
	}

	var authn domain.Authenticator
	switch cfg.AuthMethod {
	case config.AuthOIDC:
		notices := &auth.DeviceNotices{}
		authn = auth.NewOIDC(auth.OIDCConfig{
			Issuer:       cfg.OIDC.Issuer,
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			Owner:        cfg.OIDC.Owner,
		}, notices.Notify)
		httpOpts = append(httpOpts, adapthttp.WithDeviceNotices(notices))
	default:
		authn = auth.NewPassphrase(cfg.PassphraseHash, auth.ContextPrompter)
	}

	store := app.NewRecordStore(blobs, storeOpts...)
	gate := app.NewAuthGate(authn, gateOpts...)
	session := app.NewSession(gate, store, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           adapthttp.New(session, logger, httpOpts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "blob_driver", cfg.BlobDriver, "auth_method", cfg.AuthMethod)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
