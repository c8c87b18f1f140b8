package main

import (
	"fritzy-backend/cmd/fritzy/commands"
	"fritzy-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
