// Package main is the entry point for zentypes.
package main

func main() {
	Execute()
}
