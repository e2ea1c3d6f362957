package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/paperless"
	"github.com/jpalmerr/paperless/example/mockpaperless"
)

func main() {
	// start the mock Paperless-NG API
	mock := mockpaperless.New(slog.Default())
	go func() {
		if err := http.ListenAndServe(":9999", mock.Handler()); err != nil {
			slog.Error("mock server error", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// exchange the demo credentials for a token
	auth := paperless.NewAuthenticator()
	token, err := auth.Authenticate(ctx, paperless.Credentials{
		Host:     "localhost",
		Port:     "9999",
		Username: mockpaperless.Username,
		Password: mockpaperless.Password,
	})
	auth.Close()
	if err != nil {
		slog.Error("failed to authenticate", "error", err)
		os.Exit(1)
	}

	sensor, err := paperless.NewSensor(
		paperless.Session{Host: "localhost", Port: "9999", Token: token},
		paperless.WithTodoTag("inbox"),
	)
	if err != nil {
		slog.Error("failed to create sensor", "error", err)
		os.Exit(1)
	}

	hub, err := paperless.New(
		paperless.WithSensor(sensor),
		paperless.WithPollingInterval(5*time.Second),
		paperless.WithPort(8080),
		paperless.WithStateCallback(func(u paperless.Update) {
			if n := u.State.TodoDocumentCount; n != nil {
				fmt.Printf("%s: %s, %d to-do\n", u.Sensor, u.State.Status, *n)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create hub", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  Paperless-NG sensor demo")
	fmt.Println()
	fmt.Println("  States:  http://localhost:8080/api/states")
	fmt.Println("  Live:    http://localhost:8080/api/sse")
	fmt.Println("  Metrics: http://localhost:8080/metrics")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	if err := hub.Start(ctx); err != nil {
		slog.Error("hub error", "error", err)
		os.Exit(1)
	}
}
