package controllers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/forumfeed/media"
	"github.com/cppla/forumfeed/middleware"
	"github.com/cppla/forumfeed/models"
	"github.com/cppla/forumfeed/repository"
	"github.com/cppla/forumfeed/utils"
)

// MaxImageBytes bounds an uploaded image before compression.
const MaxImageBytes = 10 << 20

// PostController serves the feed and post mutations.
type PostController struct {
	posts      *repository.PostRepository
	compressor media.Compressor
	admins     map[string]struct{}
}

// NewPostController creates a new PostController instance. Viewers listed in
// admins may delete any post.
func NewPostController(posts *repository.PostRepository, compressor media.Compressor, admins []string) *PostController {
	set := make(map[string]struct{}, len(admins))
	for _, id := range admins {
		set[id] = struct{}{}
	}
	return &PostController{posts: posts, compressor: compressor, admins: set}
}

// ListPosts returns every post, newest first, with is_liked for the caller.
func (p *PostController) ListPosts(ctx *gin.Context) {
	posts, err := p.posts.ListPosts(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list posts")
		return
	}
	viewer := middleware.ViewerFrom(ctx)
	items := make([]models.PostView, 0, len(posts))
	for _, post := range posts {
		items = append(items, post.ViewFor(viewer.ID))
	}
	utils.Success(ctx, gin.H{"items": items, "total": len(items)})
}

// CreatePost publishes a post from a JSON body with a base64 image or a
// multipart form with an image file.
func (p *PostController) CreatePost(ctx *gin.Context) {
	viewer := middleware.ViewerFrom(ctx)
	if !viewer.SignedIn() {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	title, raw, ok := readPostInput(ctx)
	if !ok {
		return
	}
	if strings.TrimSpace(title) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	if len(raw) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no image uploaded")
		return
	}

	image, err := p.compressor.Compress(raw)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "image must be jpeg or png")
		return
	}

	post, err := p.posts.CreatePost(ctx.Request.Context(), viewer, title, image)
	if err != nil {
		if errors.Is(err, repository.ErrEmptyTitle) {
			utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}
	utils.Created(ctx, gin.H{"post": post.ViewFor(viewer.ID)})
}

// readPostInput writes the error response itself when ok is false.
func readPostInput(ctx *gin.Context) (title string, image []byte, ok bool) {
	if strings.HasPrefix(ctx.ContentType(), "multipart/") {
		title = ctx.PostForm("title")
		fh, err := ctx.FormFile("image")
		if err != nil {
			return title, nil, true
		}
		if fh.Size > MaxImageBytes {
			utils.Error(ctx, http.StatusBadRequest, 40032, "image exceeds 10MB")
			return "", nil, false
		}
		f, err := fh.Open()
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
			return "", nil, false
		}
		defer f.Close()
		image, err = io.ReadAll(io.LimitReader(f, MaxImageBytes))
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
			return "", nil, false
		}
		return title, image, true
	}

	var req struct {
		Title string `json:"title"`
		Image string `json:"image"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return "", nil, false
	}
	if req.Image == "" {
		return req.Title, nil, true
	}
	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, "image must be base64 encoded")
		return "", nil, false
	}
	if len(image) > MaxImageBytes {
		utils.Error(ctx, http.StatusBadRequest, 40032, "image exceeds 10MB")
		return "", nil, false
	}
	return req.Title, image, true
}

// ToggleLike flips the caller's like on a post.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	viewer := middleware.ViewerFrom(ctx)
	if !viewer.SignedIn() {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}

	post, err := p.posts.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	updated, err := p.posts.ToggleLike(ctx.Request.Context(), post, viewer.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to toggle like")
		return
	}
	utils.Success(ctx, gin.H{"post": updated.ViewFor(viewer.ID)})
}

// DeletePost removes a post. Only its author or an admin may do so.
func (p *PostController) DeletePost(ctx *gin.Context) {
	viewer := middleware.ViewerFrom(ctx)
	if !viewer.SignedIn() {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}

	post, err := p.posts.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	if _, admin := p.admins[viewer.ID]; post.AuthorID != viewer.ID && !admin {
		utils.Error(ctx, http.StatusForbidden, 40302, "you can only delete your own posts")
		return
	}

	if err := p.posts.DeletePost(ctx.Request.Context(), post.ID); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}
	utils.Success(ctx, gin.H{"message": "post deleted"})
}
