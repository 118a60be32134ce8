package main

import (
	"os"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
