// Package main is the entry point for the loopremote companion daemon
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"loopremote/internal/app"
	"loopremote/internal/history"
	"loopremote/internal/models"
	"loopremote/internal/settings"
)

func main() {
	configDir, err := models.GetConfigDir()
	if err != nil {
		fmt.Printf("Error locating config directory: %v\n", err)
		os.Exit(1)
	}

	store, err := settings.Open(filepath.Join(configDir, "settings.json"))
	if err != nil {
		fmt.Printf("Error opening settings: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	historyLog, err := history.Open(filepath.Join(configDir, "history.json"))
	if err != nil {
		fmt.Printf("Error opening command history: %v\n", err)
		os.Exit(1)
	}

	service := app.New(store, historyLog, filepath.Join(configDir, "status.png"))
	service.Run()

	if !store.Settings().IsConfigured() {
		fmt.Printf("Nightscout is not configured yet; edit %s\n", filepath.Join(configDir, "settings.json"))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("Shutting down")
	service.Stop()
}
