// Command forumcli drives the forum feed from a terminal: list the feed,
// publish an image post, like, delete and comment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cppla/forumfeed/config"
	"github.com/cppla/forumfeed/docstore"
	"github.com/cppla/forumfeed/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newApp(func(cfg config.AppConfig) (docstore.Store, error) {
		return docstore.Open(cfg, utils.GetRedis())
	})
	if err := app.RunContext(ctx, os.Args); err != nil {
		utils.Sugar.Errorw("forumcli failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
