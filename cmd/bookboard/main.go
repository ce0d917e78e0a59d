package main

import (
	"log"

	"github.com/MrSnakeDoc/bookboard/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ bookboard failed to initialize: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ bookboard failed to start: %v", err)
	}
}
