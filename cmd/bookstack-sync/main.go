// Package main provides the bookstack-sync command line tool. It copies a book
// from a source BookStack instance to a destination instance without running
// the HTTP API.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
