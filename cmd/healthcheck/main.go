// Command healthcheck завершается с кодом 0, если gRPC health endpoint API
// отвечает SERVING. Предназначен для инструкции HEALTHCHECK в контейнере.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/magabrotheeeer/randomlife/internal/grpc/client"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC health address")
	service := flag.String("service", "", "service name, empty for the overall status")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	flag.Parse()

	c, err := client.NewHealthClient(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ok, err := c.Serving(ctx, *service)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "not serving")
		os.Exit(1)
	}
}
