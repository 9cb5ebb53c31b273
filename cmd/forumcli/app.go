package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cppla/forumfeed/config"
	"github.com/cppla/forumfeed/docstore"
	"github.com/cppla/forumfeed/identity"
	"github.com/cppla/forumfeed/media"
	"github.com/cppla/forumfeed/models"
	"github.com/cppla/forumfeed/presenters"
	"github.com/cppla/forumfeed/repository"
	"github.com/cppla/forumfeed/utils"
)

type storeOpener func(config.AppConfig) (docstore.Store, error)

// session is the state shared by every command of one invocation.
type session struct {
	out        io.Writer
	viewer     identity.Provider
	dispatcher *presenters.SerialDispatcher
	feed       *presenters.FeedPresenter
	cfg        config.AppConfig
}

func newApp(open storeOpener) *cli.App {
	var s session

	app := &cli.App{
		Name:  "forumcli",
		Usage: "browse and post to the forum feed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Value: "sqlite", Usage: "store driver: memory, sqlite or mysql", EnvVars: []string{"STORE_DRIVER"}},
			&cli.StringFlag{Name: "dsn", Value: "forumfeed.db", Usage: "sqlite path or mysql DSN", EnvVars: []string{"DATABASE_URI"}},
			&cli.BoolFlag{Name: "redis", Usage: "cache lists in redis", EnvVars: []string{"REDIS_ENABLED"}},
			&cli.StringFlag{Name: "token", Usage: "bearer token issued by the identity provider", EnvVars: []string{"FORUM_TOKEN"}},
			&cli.StringFlag{Name: "jwt-secret", Usage: "secret used to verify --token", EnvVars: []string{"JWT_SECRET"}},
			&cli.StringFlag{Name: "viewer", Usage: "act as this viewer id without a token"},
			&cli.StringFlag{Name: "name", Usage: "display name used with --viewer"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "write logs to stdout"},
		},
		Before: func(c *cli.Context) error {
			cfg := config.AppConfig{
				JWTSecret:    c.String("jwt-secret"),
				StoreDriver:  c.String("store"),
				DatabaseURI:  c.String("dsn"),
				RedisEnabled: c.Bool("redis"),
				LogLevel:     "warn",
			}
			if c.Bool("verbose") {
				cfg.LogLevel = "debug"
			}
			config.Set(cfg)
			cfg = config.Get()
			if c.Bool("verbose") {
				if err := utils.InitLogger(cfg); err != nil {
					return err
				}
			}

			viewer, err := resolveViewer(c)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			store, err := open(cfg)
			if err != nil {
				return err
			}
			posts := repository.NewPostRepository(store)
			posts.CascadeComments = cfg.CascadeCommentDelete

			s = session{
				out:        c.App.Writer,
				viewer:     viewer,
				dispatcher: presenters.NewSerialDispatcher(16),
				cfg:        cfg,
			}
			s.feed = presenters.NewFeedPresenter(posts, repository.NewCommentRepository(store), viewer, s.dispatcher)
			return nil
		},
		After: func(c *cli.Context) error {
			if s.dispatcher != nil {
				s.feed.Unmount()
				s.dispatcher.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "feed",
				Usage:  "list posts, newest first",
				Action: func(c *cli.Context) error { return s.printFeed(c.Context) },
			},
			{
				Name:  "post",
				Usage: "publish an image with a title",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "image", Required: true, Usage: "path to a jpeg or png file"},
				},
				Action: func(c *cli.Context) error {
					return s.publish(c.Context, c.String("title"), c.String("image"))
				},
			},
			{
				Name:      "like",
				Usage:     "like or unlike a post",
				ArgsUsage: "<post-id>",
				Action:    func(c *cli.Context) error { return s.toggleLike(c.Context, c.Args().First()) },
			},
			{
				Name:      "delete",
				Usage:     "delete a post",
				ArgsUsage: "[--yes] <post-id>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "yes", Usage: "confirm the deletion"}},
				Action: func(c *cli.Context) error {
					return s.delete(c.Context, c.Args().First(), c.Bool("yes"))
				},
			},
			{
				Name:      "comments",
				Usage:     "show a post's comments",
				ArgsUsage: "<post-id>",
				Action:    func(c *cli.Context) error { return s.printComments(c.Context, c.Args().First()) },
			},
			{
				Name:      "comment",
				Usage:     "comment on a post",
				ArgsUsage: "--text <text> <post-id>",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "text", Required: true}},
				Action: func(c *cli.Context) error {
					return s.comment(c.Context, c.Args().First(), c.String("text"))
				},
			},
			{
				Name:  "token",
				Usage: "sign a local bearer token for --viewer with --jwt-secret",
				Flags: []cli.Flag{&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour}},
				Action: func(c *cli.Context) error {
					return s.signToken(c.Duration("ttl"))
				},
			},
		},
	}
	return app
}

func resolveViewer(c *cli.Context) (identity.Provider, error) {
	if tok := c.String("token"); tok != "" {
		if config.Get().JWTSecret == "" {
			return nil, errors.New("--token needs --jwt-secret")
		}
		claims, err := utils.ParseToken(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
		return identity.Static(claims.Viewer()), nil
	}
	if id := c.String("viewer"); id != "" {
		return identity.Static{ID: id, DisplayName: c.String("name")}, nil
	}
	return identity.Anonymous, nil
}

func (s *session) signToken(ttl time.Duration) error {
	viewer := s.viewer.CurrentViewer()
	if !viewer.SignedIn() {
		return repository.ErrNotSignedIn
	}
	if s.cfg.JWTSecret == "" {
		return cli.Exit("token needs --jwt-secret", 2)
	}
	tok, err := utils.GenerateToken(viewer, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, tok)
	return nil
}

func (s *session) loadFeed(ctx context.Context) error {
	if err := s.feed.Mount(ctx).Wait(ctx); err != nil {
		return fmt.Errorf("load feed: %w", err)
	}
	return nil
}

func (s *session) findPost(ctx context.Context, id string) (*presenters.PostPresenter, error) {
	if id == "" {
		return nil, cli.Exit("missing <post-id>", 2)
	}
	if err := s.loadFeed(ctx); err != nil {
		return nil, err
	}
	for _, post := range s.feed.Posts() {
		if post.ID == id {
			return s.feed.PostPresenter(post), nil
		}
	}
	return nil, cli.Exit("post "+id+" not found", 1)
}

func (s *session) printFeed(ctx context.Context) error {
	if err := s.loadFeed(ctx); err != nil {
		return err
	}
	posts := s.feed.Posts()
	if len(posts) == 0 {
		fmt.Fprintln(s.out, "no posts yet")
		return nil
	}
	viewerID := s.viewer.CurrentViewer().ID
	for _, post := range posts {
		s.printPost(post, post.IsLikedBy(viewerID))
	}
	return nil
}

func (s *session) printPost(post models.Post, liked bool) {
	heart := "♡"
	if liked {
		heart = "♥"
	}
	fmt.Fprintf(s.out, "[%s] %s · %s\n  %s\n  %s %d\n",
		post.ID, post.AuthorName, presenters.FormatTime(post.CreatedAt), post.Title, heart, post.LikeCount)
}

func (s *session) publish(ctx context.Context, title, path string) error {
	if err := s.loadFeed(ctx); err != nil {
		return err
	}
	composer := s.feed.Composer(media.FilePicker{
		Path:       path,
		Compressor: media.Compressor{MaxWidth: s.cfg.ImageMaxWidth, Quality: s.cfg.ImageQuality},
	})
	composer.SetTitle(title)
	if err := composer.PickImage(ctx).Wait(ctx); err != nil {
		return err
	}
	if err := composer.Submit(ctx).Wait(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "posted")
	return nil
}

func (s *session) toggleLike(ctx context.Context, id string) error {
	p, err := s.findPost(ctx, id)
	if err != nil {
		return err
	}
	if err := p.ToggleLike(ctx).Wait(ctx); err != nil {
		return err
	}
	s.printPost(p.Post(), p.Liked())
	return nil
}

func (s *session) delete(ctx context.Context, id string, confirmed bool) error {
	p, err := s.findPost(ctx, id)
	if err != nil {
		return err
	}
	p.RequestDelete()
	if !confirmed {
		p.CancelDelete()
		fmt.Fprintf(s.out, "re-run with --yes to delete %q\n", p.Post().Title)
		return nil
	}
	if err := p.ConfirmDelete(ctx).Wait(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "deleted")
	return nil
}

func (s *session) thread(ctx context.Context, id string) (*presenters.CommentPresenter, error) {
	p, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}
	c := p.OpenComments()
	if err := c.Mount(ctx).Wait(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *session) printComments(ctx context.Context, id string) error {
	c, err := s.thread(ctx, id)
	if err != nil {
		return err
	}
	s.printThread(c.Comments())
	return nil
}

func (s *session) printThread(comments []models.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(s.out, "no comments")
		return
	}
	for _, cm := range comments {
		fmt.Fprintf(s.out, "%s (%s): %s\n", cm.AuthorName, presenters.FormatTime(cm.CreatedAt), cm.Text)
	}
}

func (s *session) comment(ctx context.Context, id, text string) error {
	c, err := s.thread(ctx, id)
	if err != nil {
		return err
	}
	c.SetDraft(text)
	if err := c.Submit(ctx).Wait(ctx); err != nil {
		return err
	}
	s.printThread(c.Comments())
	return nil
}
