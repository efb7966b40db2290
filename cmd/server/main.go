package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"makwenta.app/finance-assistant/internal/agent"
	"makwenta.app/finance-assistant/internal/api"
	"makwenta.app/finance-assistant/internal/cache"
	"makwenta.app/finance-assistant/internal/config"
	"makwenta.app/finance-assistant/internal/core"
	"makwenta.app/finance-assistant/internal/scheduler"
	"makwenta.app/finance-assistant/internal/store"
	"makwenta.app/finance-assistant/internal/tools"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flag for one-shot recurring processing
	processRecurringFlag := flag.Bool("process-recurring", false, "Process due recurring expenses once and exit")
	flag.Parse()

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	recurringInterval := time.Duration(config.AppConfig.RecurringIntervalMinutes) * time.Minute
	processor := scheduler.NewProcessor(dbStore, recurringInterval)

	// Handle one-shot recurring processing if flag is set
	if *processRecurringFlag {
		n, err := processor.ProcessDue(time.Now())
		if err != nil {
			log.Fatalf("Recurring processing failed: %v", err)
		}
		log.Printf("Recurring processing complete. Recorded %d transaction(s). Exiting.", n)
		os.Exit(0)
	}

	// Initialize planner
	planner := core.NewGeminiPlanner()
	defer planner.Close()

	// Budget snapshot cache
	budgets, err := cache.NewBudgetCache(dbStore)
	if err != nil {
		log.Fatalf("Failed to initialize budget cache: %v", err)
	}
	defer budgets.Close()

	// Tool catalog and dispatcher
	registry := tools.NewRegistry()
	tools.NewFinancial(dbStore, budgets).RegisterAll(registry)
	dispatcher := tools.NewDispatcher(registry)

	// Agent loop and sessions
	sessions := agent.NewSessionRegistry()
	loop := agent.NewLoop(
		planner,
		dispatcher,
		budgets,
		config.AppConfig.MaxIterations,
		time.Duration(config.AppConfig.TurnTimeoutSeconds)*time.Second,
	)

	// Background recurring processor
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go processor.Run(schedCtx)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(dbStore, loop, sessions)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // agent turns can take several planner round trips
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
