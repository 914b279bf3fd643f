package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"campusmark/internal/config"
	"campusmark/internal/localstore"
	"campusmark/internal/remote"
	"campusmark/internal/syncer"
)

// syncd is the client-side daemon: it owns the local store and runs the
// sync orchestrator on its natural triggers: the periodic sync tick,
// the hourly backup, and connectivity regain.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	store, err := localstore.Open(cfg.LocalDBPath)
	if err != nil {
		log.Fatalf("local store open failed: %v", err)
	}
	defer store.Close()

	var sessionToken atomic.Value
	sessionToken.Store("")

	client := remote.New(cfg.APIBaseURL, cfg.APITimeout)
	client.TokenSource = func() string {
		token, _ := sessionToken.Load().(string)
		return token
	}

	var online atomic.Bool
	s := syncer.New(store, client, online.Load)

	// Establish a session from the persisted Google credential, if any.
	if user, err := store.User(); err == nil && user.IDToken != "" {
		if session, err := client.ExchangeGoogleToken(ctx, user.IDToken); err != nil {
			log.Printf("session exchange failed: %v", err)
		} else {
			sessionToken.Store(session.Token)
			log.Printf("signed in as %s", user.Email)
		}
	} else {
		log.Println("no stored user; running local-only until login")
	}

	bus := syncer.NewTriggerBus()

	// Connectivity probe: poll the API health endpoint and pull on the
	// offline-to-online transition.
	go func() {
		ticker := time.NewTicker(cfg.ProbeInterval)
		defer ticker.Stop()
		for {
			healthy := client.CheckHealth(ctx)
			was := online.Swap(healthy)
			if healthy && !was {
				log.Println("connectivity regained")
				bus.Request(syncer.TriggerPull)
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Periodic push of whatever is unsynced.
	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bus.Request(syncer.TriggerPush)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Hourly local backup (pushes afterwards on its own).
	go func() {
		ticker := time.NewTicker(cfg.BackupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Backup(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Println("syncd started")
	for {
		select {
		case trigger := <-bus.C():
			switch trigger {
			case syncer.TriggerPull:
				s.FetchAndMerge(ctx)
			case syncer.TriggerPush:
				s.Sync(ctx, s.LocalData())
			}
		case <-ctx.Done():
			log.Println("syncd stopped")
			return
		}
	}
}
