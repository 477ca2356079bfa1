package main

import (
	"log"

	"github.com/MrSnakeDoc/proxydeck/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("proxydeck failed to start: %v", err)
	}
}
