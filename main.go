package main

import (
	"context"

	"github.com/cppla/forumfeed/config"
	"github.com/cppla/forumfeed/docstore"
	"github.com/cppla/forumfeed/repository"
	"github.com/cppla/forumfeed/routes"
	"github.com/cppla/forumfeed/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	store, err := docstore.Open(cfg, utils.GetRedis())
	if err != nil {
		utils.Sugar.Fatalf("open document store: %v", err)
	}

	posts := repository.NewPostRepository(store)
	posts.CascadeComments = cfg.CascadeCommentDelete
	comments := repository.NewCommentRepository(store)

	r := routes.SetupRouter(posts, comments)

	utils.Sugar.Infof("Starting server on port %s (graceful), store=%s", cfg.AppPort, cfg.StoreDriver)
	if err := utils.GraceServer(context.Background(), ":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
