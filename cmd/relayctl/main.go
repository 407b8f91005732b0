package main

import "github.com/ogulcanaydogan/cost-anomaly-relay/internal/cli"

func main() {
	cli.Execute()
}
