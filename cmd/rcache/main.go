// Command rcache lists and invalidates cached function results.
//
//	rcache keys --tag reports
//	rcache --namespace app invalidate --func build
//	rcache invalidate --all
//
// The store URL comes from --url, REDIS_CACHE_URL or REDIS_URL. A .env file in
// the working directory is loaded first when present.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
