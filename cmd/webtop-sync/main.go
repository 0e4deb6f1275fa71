package main

import (
	"context"
	"webtop-sync/cmd/webtop-sync/commands"
	"webtop-sync/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
