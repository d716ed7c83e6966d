package main // import "jobimporter.app"

import "jobimporter.app/internal/cli"

func main() {
	cli.Execute()
}
