package main

import (
	"context"

	"seatwatch/cmd/seatwatch/commands"
	"seatwatch/internal/components/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
