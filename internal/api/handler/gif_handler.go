package handler

import (
	"Murmur/internal/api/dto"
	"Murmur/internal/pkg/response"
	"Murmur/internal/service"

	"github.com/gin-gonic/gin"
)

type GifHandler struct {
	gifSvc service.GifService
}

func NewGifHandler(gifSvc service.GifService) *GifHandler {
	return &GifHandler{gifSvc: gifSvc}
}

// Search GIF 搜索代理
func (s *GifHandler) Search(c *gin.Context) {
	var req dto.GifSearchReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.gifSvc.Search(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
