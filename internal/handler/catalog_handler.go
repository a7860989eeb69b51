package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Ackberry/cinetune/internal/catalog"
	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/pkg/log"
	"github.com/Ackberry/cinetune/pkg/response"
)

// SearchMovies proxies a movie catalog search.
func (h *Handler) SearchMovies(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.CatalogSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.catalogService.SearchMovies(ctx, req.Query)
	if err != nil {
		h.catalogError(c, err, "failed to search movies")
		return
	}

	response.Success(c, result)
}

// TrendingMovies proxies the trending movies page.
func (h *Handler) TrendingMovies(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.TrendingRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.catalogService.TrendingMovies(ctx, req.Window)
	if err != nil {
		h.catalogError(c, err, "failed to fetch trending movies")
		return
	}

	response.Success(c, result)
}

// SearchTracks proxies a track catalog search.
func (h *Handler) SearchTracks(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.CatalogSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.catalogService.SearchTracks(ctx, req.Query)
	if err != nil {
		h.catalogError(c, err, "failed to search tracks")
		return
	}

	response.Success(c, result)
}

// TopTracks proxies the featured playlist.
func (h *Handler) TopTracks(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := h.catalogService.TopTracks(ctx)
	if err != nil {
		h.catalogError(c, err, "failed to fetch top tracks")
		return
	}

	response.Success(c, result)
}

func (h *Handler) catalogError(c *gin.Context, err error, msg string) {
	l := log.Ctx(c.Request.Context())

	var upstream *catalog.UpstreamError
	if errors.As(err, &upstream) {
		l.Warn().Err(err).Msg(msg)
		response.BadGateway(c, msg)
		return
	}

	l.Error().Err(err).Msg(msg)
	response.InternalError(c, msg)
}
