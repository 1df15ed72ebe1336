package main

import "github.com/happyvertical/smrt-sub009/internal/cli"

func main() {
	cli.Execute()
}
