package main

import (
	"os"
)

func main() {
	server := NewMCPServer(os.Getenv("EVENTBOT_API_URL"), os.Getenv("EVENTBOT_API_USERNAME"), os.Getenv("EVENTBOT_API_PASSWORD"))
	server.Run(os.Stdin, os.Stdout)
}
