package main

import "github.com/iliyamo/movie-explorer/internal/cli"

func main() {
	cli.Execute()
}
