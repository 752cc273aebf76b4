package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/clovigo/internal/app"
)

func main() {
	a := app.New()
	<-a.Start()

	// covers app.server.shutdown_drain_seconds plus in-flight requests
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a.Stop(ctx)
}
