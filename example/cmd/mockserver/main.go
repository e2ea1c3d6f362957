// Standalone mock Paperless-NG server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	echo demo > /tmp/pw
//	go run ./cmd/paperless-sensor setup -c /tmp/paperless.yaml \
//	    --host localhost --port 9999 --username demo --password-file /tmp/pw --todo-tag inbox
//	go run ./cmd/paperless-sensor serve -c /tmp/paperless.yaml
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jpalmerr/paperless/example/mockpaperless"
)

func main() {
	fmt.Println("Mock Paperless-NG server starting on :9999")
	fmt.Printf("Credentials: %s / %s\n", mockpaperless.Username, mockpaperless.Password)
	fmt.Println("A new inbox document arrives every 20-60 seconds")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	srv := mockpaperless.New(slog.Default())
	if err := http.ListenAndServe(":9999", srv.Handler()); err != nil {
		slog.Error("mock server error", "error", err)
		os.Exit(1)
	}
}
