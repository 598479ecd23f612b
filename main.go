package main

import "medconnect-server/internal/cli"

func main() {
	cli.Execute()
}
