package main

import "github.com/kozaktomas/mask-sentry/cmd"

func main() {
	cmd.Execute()
}
