// Package main provides the entry point for the ipfeed CLI.
package main

func main() {
	Execute()
}
