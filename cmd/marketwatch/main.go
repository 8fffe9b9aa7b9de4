package main

import (
	"marketwatch/cmd/marketwatch/commands"
	"marketwatch/internal/components/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()
	commands.ExecuteContext(ctx)
}
