package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/forumfeed/middleware"
	"github.com/cppla/forumfeed/repository"
	"github.com/cppla/forumfeed/utils"
)

// CommentController serves a post's comment thread.
type CommentController struct {
	comments *repository.CommentRepository
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(comments *repository.CommentRepository) *CommentController {
	return &CommentController{comments: comments}
}

// ListComments returns the thread newest first. Threads of deleted posts stay readable.
func (c *CommentController) ListComments(ctx *gin.Context) {
	thread, err := c.comments.ListComments(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to list comments")
		return
	}
	utils.Success(ctx, gin.H{"items": thread})
}

// AddComment appends a comment as the caller and returns the refreshed thread.
func (c *CommentController) AddComment(ctx *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	postID := ctx.Param("id")
	viewer := middleware.ViewerFrom(ctx)
	id, err := c.comments.AddComment(ctx.Request.Context(), postID, req.Text, viewer.DisplayName)
	if err != nil {
		if errors.Is(err, repository.ErrEmptyComment) {
			utils.Error(ctx, http.StatusBadRequest, 40023, "text cannot be empty")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to create comment")
		return
	}

	thread, err := c.comments.ListComments(ctx.Request.Context(), postID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to list comments")
		return
	}
	utils.Created(ctx, gin.H{"id": id, "items": thread})
}
